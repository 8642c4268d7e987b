// Package risparser reads RIS (Research Information Systems) files, the
// tagged plain-text interchange format used by reference managers. A
// record starts with a TY line, ends with an ER line, and every tagged
// line has the shape "XX  - value".
package risparser

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"dtbase_go_backend/internal/models"
)

var tagPattern = regexp.MustCompile(`^([A-Z][A-Z0-9])  - ?(.*)$`)

// Record is one bibliographic entry. Fields preserves every tag in
// order of appearance; repeatable tags (AU, KW, ...) accumulate values.
type Record struct {
	Type   string
	Fields map[string][]string
	Raw    string
}

// First returns the first value of a tag, or "" if the tag is absent.
func (r Record) First(tag string) string {
	if vals, ok := r.Fields[tag]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// Parse reads every record from the input. It is tolerant: lines outside
// a TY..ER block are skipped, unknown tags are retained in Fields, and
// untagged lines continue the previous value.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record

	var cur *Record
	var raw strings.Builder
	var lastTag string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		m := tagPattern.FindStringSubmatch(line)

		if m == nil {
			// Continuation of the previous value (long abstracts wrap),
			// or noise outside a record.
			if cur != nil && lastTag != "" && strings.TrimSpace(line) != "" {
				vals := cur.Fields[lastTag]
				vals[len(vals)-1] += " " + strings.TrimSpace(line)
				raw.WriteString(line + "\n")
			}
			continue
		}

		tag, value := m[1], strings.TrimSpace(m[2])

		if tag == "TY" {
			cur = &Record{Type: value, Fields: make(map[string][]string)}
			raw.Reset()
			raw.WriteString(line + "\n")
			lastTag = ""
			continue
		}
		if cur == nil {
			continue
		}
		raw.WriteString(line + "\n")
		if tag == "ER" {
			cur.Raw = raw.String()
			records = append(records, *cur)
			cur = nil
			lastTag = ""
			continue
		}
		cur.Fields[tag] = append(cur.Fields[tag], value)
		lastTag = tag
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read RIS input: %v", err)
	}
	return records, nil
}

// Validate checks well-formedness: every record starts with TY and ends
// with ER, every non-blank line is tagged or continues a tagged value,
// and nothing but blank lines follows the final ER.
func Validate(r io.Reader) error {
	inRecord := false
	sawValue := false
	records := 0
	lineNo := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		m := tagPattern.FindStringSubmatch(line)
		if m == nil {
			if inRecord && sawValue {
				continue // wrapped value
			}
			return fmt.Errorf("line %d: not a valid RIS tag line: %q", lineNo, line)
		}

		switch tag := m[1]; {
		case tag == "TY":
			if inRecord {
				return fmt.Errorf("line %d: TY inside an unterminated record", lineNo)
			}
			inRecord = true
			sawValue = false
		case tag == "ER":
			if !inRecord {
				return fmt.Errorf("line %d: ER without a matching TY", lineNo)
			}
			inRecord = false
			records++
		default:
			if !inRecord {
				return fmt.Errorf("line %d: tag %s outside a record", lineNo, tag)
			}
			sawValue = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read RIS input: %v", err)
	}
	if inRecord {
		return fmt.Errorf("unterminated record: missing ER")
	}
	if records == 0 {
		return fmt.Errorf("no records found")
	}
	return nil
}

// MapReference converts a parsed record into a Reference row under the
// given id. Tag precedence follows common reference-manager exports:
// title T1 then TI, authors AU then A1, publisher PB then the journal
// name (JO/JF/T2), year PY then Y1.
func MapReference(rec Record, refID string) (models.Reference, error) {
	title := firstOf(rec, "T1", "TI")
	if title == "" {
		return models.Reference{}, fmt.Errorf("record has no title (T1/TI)")
	}

	authors := rec.Fields["AU"]
	if len(authors) == 0 {
		authors = rec.Fields["A1"]
	}

	year := firstOf(rec, "PY", "Y1")
	// Dates export as YYYY/MM/DD; keep the year component.
	if i := strings.IndexAny(year, "/-"); i > 0 {
		year = year[:i]
	}

	return models.Reference{
		RefID:           refID,
		Title:           title,
		Authors:         strings.Join(authors, "; "),
		Year:            year,
		PublicationType: rec.Type,
		Publisher:       firstOf(rec, "PB", "JO", "JF", "T2"),
		DOI:             firstOf(rec, "DO", "L3"),
		URL:             rec.First("UR"),
		RawRIS:          rec.Raw,
	}, nil
}

func firstOf(rec Record, tags ...string) string {
	for _, tag := range tags {
		if v := rec.First(tag); v != "" {
			return v
		}
	}
	return ""
}
