package services

import (
	"archive/zip"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"dtbase_go_backend/internal/models"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"
)

// ExportService writes model snapshots: the csv data files, a pdf report
// with a drawing of the graph, and a zip archive bundling both with the
// database file.
type ExportService struct {
	model  *ModelService
	dbPath string
	logger zerolog.Logger
}

func NewExportService(model *ModelService, dbPath string, logger zerolog.Logger) *ExportService {
	return &ExportService{model: model, dbPath: dbPath, logger: logger}
}

// WriteDataFiles writes nodes.csv, links.csv and references.csv into dir.
func (s *ExportService) WriteDataFiles(dir string) error {
	nodes, err := s.model.Nodes()
	if err != nil {
		return err
	}
	links, err := s.model.Links()
	if err != nil {
		return err
	}
	refs, err := s.model.References()
	if err != nil {
		return err
	}

	nodeRows := [][]string{{"node_id", "name", "keywords"}}
	for _, n := range nodes {
		nodeRows = append(nodeRows, []string{n.NodeID, n.Name, n.Keywords})
	}
	if err := writeCSV(filepath.Join(dir, "nodes.csv"), nodeRows); err != nil {
		return err
	}

	linkRows := [][]string{{
		"link_id", "parent_id", "child_id",
		"m1_type", "m1_a", "m1_b", "m2_type", "m2_a", "m2_b", "m3_type", "m3_a", "m3_b",
		"m1_memo", "m2_memo", "m3_memo", "ref_id", "edge_key",
	}}
	for _, l := range links {
		linkRows = append(linkRows, []string{
			l.LinkID, l.ParentID, l.ChildID,
			string(l.M1.Type), fmtFloat(l.M1.A), fmtFloat(l.M1.B),
			string(l.M2.Type), fmtFloat(l.M2.A), fmtFloat(l.M2.B),
			string(l.M3.Type), fmtFloat(l.M3.A), fmtFloat(l.M3.B),
			l.M1Memo, l.M2Memo, l.M3Memo, l.RefID, strconv.Itoa(l.EdgeKey),
		})
	}
	if err := writeCSV(filepath.Join(dir, "links.csv"), linkRows); err != nil {
		return err
	}

	refRows := [][]string{{"ref_id", "title", "authors", "year", "publication_type", "publisher", "doi", "url"}}
	for _, r := range refs {
		refRows = append(refRows, []string{r.RefID, r.Title, r.Authors, r.Year, r.PublicationType, r.Publisher, r.DOI, r.URL})
	}
	return writeCSV(filepath.Join(dir, "references.csv"), refRows)
}

// WritePDF renders the model report: summary counts, the node table and
// a circular-layout drawing of the graph.
func (s *ExportService) WritePDF(path string) error {
	nodes, err := s.model.Nodes()
	if err != nil {
		return err
	}
	links, err := s.model.Links()
	if err != nil {
		return err
	}
	refs, err := s.model.References()
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "DT-BASE Causal Model")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("%d nodes, %d links, %d references", len(nodes), len(links), len(refs)))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(25, 7, "Node", "1", 0, "", false, 0, "")
	pdf.CellFormat(75, 7, "Name", "1", 0, "", false, 0, "")
	pdf.CellFormat(90, 7, "Keywords", "1", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, n := range nodes {
		pdf.CellFormat(25, 6, n.NodeID, "1", 0, "", false, 0, "")
		pdf.CellFormat(75, 6, n.Name, "1", 0, "", false, 0, "")
		pdf.CellFormat(90, 6, n.Keywords, "1", 1, "", false, 0, "")
	}

	s.drawGraph(pdf, nodes, links)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write model pdf: %v", err)
	}
	return nil
}

// drawGraph lays the nodes out on a circle and draws each link as a line
// with a marker at the child end.
func (s *ExportService) drawGraph(pdf *gofpdf.Fpdf, nodes []models.Node, links []models.Link) {
	if len(nodes) == 0 {
		return
	}
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 10, "Graph")
	pdf.Ln(10)

	const cx, cy, r = 105.0, 150.0, 70.0
	pos := make(map[string][2]float64, len(nodes))
	sorted := append([]models.Node(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].NodeID < sorted[j].NodeID })
	for i, n := range sorted {
		angle := 2 * math.Pi * float64(i) / float64(len(sorted))
		pos[n.NodeID] = [2]float64{cx + r*math.Cos(angle), cy + r*math.Sin(angle)}
	}

	pdf.SetDrawColor(120, 120, 120)
	for _, l := range links {
		p, ok1 := pos[l.ParentID]
		c, ok2 := pos[l.ChildID]
		if !ok1 || !ok2 {
			continue
		}
		pdf.Line(p[0], p[1], c[0], c[1])
		// Marker near the child end to show direction.
		mx := c[0] + 0.15*(p[0]-c[0])
		my := c[1] + 0.15*(p[1]-c[1])
		pdf.Circle(mx, my, 1.2, "F")
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetFillColor(230, 230, 250)
	pdf.SetFont("Arial", "", 9)
	for _, n := range sorted {
		p := pos[n.NodeID]
		pdf.Circle(p[0], p[1], 6, "FD")
		pdf.Text(p[0]-pdf.GetStringWidth(n.NodeID)/2, p[1]+1.5, n.NodeID)
	}
}

// ExportArchive writes a zip with the csv data files, the model pdf and
// the database file.
func (s *ExportService) ExportArchive(w io.Writer) error {
	tmpDir, err := os.MkdirTemp("", "dtbase_export_")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	if err := s.WriteDataFiles(tmpDir); err != nil {
		return err
	}
	if err := s.WritePDF(filepath.Join(tmpDir, "model.pdf")); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	names := []string{"nodes.csv", "links.csv", "references.csv", "model.pdf"}
	for _, name := range names {
		if err := addFileToZip(zw, filepath.Join(tmpDir, name), name); err != nil {
			return err
		}
	}
	// In-memory test databases have no file to bundle.
	if s.dbPath != "" && s.dbPath != ":memory:" {
		if _, err := os.Stat(s.dbPath); err == nil {
			if err := addFileToZip(zw, s.dbPath, filepath.Base(s.dbPath)); err != nil {
				return err
			}
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	s.logger.Info().Msg("model archive exported")
	return nil
}

func addFileToZip(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entry, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, f)
	return err
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
