package services

import (
	"fmt"
	"io"
	"strings"

	"dtbase_go_backend/internal/models"
	"dtbase_go_backend/internal/utils/risparser"

	"github.com/nickng/bibtex"
	"github.com/rs/zerolog"
)

// ReferenceImportService loads bibliographic files into the model.
type ReferenceImportService struct {
	model  *ModelService
	logger zerolog.Logger
}

func NewReferenceImportService(model *ModelService, logger zerolog.Logger) *ReferenceImportService {
	return &ReferenceImportService{model: model, logger: logger}
}

// ImportRIS parses an RIS file and stores one reference per record under
// the caller-provided ids. The id list must cover every record in the
// file.
func (s *ReferenceImportService) ImportRIS(r io.Reader, refIDs []string) ([]models.Reference, error) {
	records, err := risparser.Parse(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no RIS records found")
	}
	if len(records) > len(refIDs) {
		return nil, fmt.Errorf("the ref_id list provided must match the number of entries: got %d ids for %d records",
			len(refIDs), len(records))
	}

	refs := make([]models.Reference, 0, len(records))
	for i, rec := range records {
		ref, err := risparser.MapReference(rec, refIDs[i])
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		refs = append(refs, ref)
	}

	// All-or-nothing: one bad record must not leave a partial import.
	if err := s.model.AddReferences(refs); err != nil {
		return nil, err
	}
	for _, ref := range refs {
		s.logger.Info().Str("ref_id", ref.RefID).Str("title", ref.Title).Msg("imported RIS reference")
	}
	return refs, nil
}

// ImportBibTeX parses a BibTeX file and stores one reference per entry,
// keyed by cite name.
func (s *ReferenceImportService) ImportBibTeX(r io.Reader) ([]models.Reference, error) {
	bib, err := bibtex.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse BibTeX: %v", err)
	}
	if len(bib.Entries) == 0 {
		return nil, fmt.Errorf("no BibTeX entries found")
	}

	refs := make([]models.Reference, 0, len(bib.Entries))
	for _, entry := range bib.Entries {
		ref := models.Reference{
			RefID:           entry.CiteName,
			Title:           bibField(entry, "title"),
			Authors:         bibField(entry, "author"),
			Year:            bibField(entry, "year"),
			PublicationType: strings.ToUpper(entry.Type),
			Publisher:       firstBibField(entry, "publisher", "journal", "booktitle"),
			DOI:             bibField(entry, "doi"),
			URL:             bibField(entry, "url"),
		}
		if ref.Title == "" {
			return nil, fmt.Errorf("entry [%s] has no title", entry.CiteName)
		}
		refs = append(refs, ref)
	}

	if err := s.model.AddReferences(refs); err != nil {
		return nil, err
	}
	for _, ref := range refs {
		s.logger.Info().Str("ref_id", ref.RefID).Str("title", ref.Title).Msg("imported BibTeX reference")
	}
	return refs, nil
}

// ValidateRIS reports whether the input is a well-formed RIS file.
func (s *ReferenceImportService) ValidateRIS(r io.Reader) error {
	return risparser.Validate(r)
}

func bibField(entry *bibtex.BibEntry, name string) string {
	if v, ok := entry.Fields[name]; ok {
		return strings.TrimSpace(v.String())
	}
	return ""
}

func firstBibField(entry *bibtex.BibEntry, names ...string) string {
	for _, name := range names {
		if v := bibField(entry, name); v != "" {
			return v
		}
	}
	return ""
}
