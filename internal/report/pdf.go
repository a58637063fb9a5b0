package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/socops/sochub/internal/models"
)

var (
	colorPrimary     = [3]int{30, 58, 95}
	colorTextDark    = [3]int{44, 62, 80}
	colorTextMuted   = [3]int{127, 140, 141}
	colorTableHeader = [3]int{30, 58, 95}
	colorTableAlt    = [3]int{241, 245, 249}
	colorCritical    = [3]int{153, 27, 27}
	colorHigh        = [3]int{231, 76, 60}
	colorMedium      = [3]int{202, 138, 4}
	colorLow         = [3]int{46, 160, 67}
)

// PDFGenerator renders incident exports as A4 PDF documents.
type PDFGenerator struct{}

// NewPDFGenerator creates a new PDF generator.
func NewPDFGenerator() *PDFGenerator {
	return &PDFGenerator{}
}

// Generate builds the PDF: a summary page followed by the incident table.
func (g *PDFGenerator) Generate(data ExportData) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	g.writeHeader(pdf, tr, data)
	g.writeSummary(pdf, tr, data.Stats)
	g.writeIncidentTable(pdf, tr, exportRows(data.Incidents))
	g.addPageNumbers(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("PDF output error: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *PDFGenerator) writeHeader(pdf *fpdf.Fpdf, tr func(string) string, data ExportData) {
	pageWidth, _ := pdf.GetPageSize()
	pdf.SetFillColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.Rect(0, 0, pageWidth, 6, "F")

	pdf.SetY(12)
	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(colorPrimary[0], colorPrimary[1], colorPrimary[2])
	pdf.CellFormat(0, 10, tr(data.Title), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
	meta := "Generated " + data.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")
	if data.RunID != "" {
		meta += "  |  run " + data.RunID
	}
	pdf.CellFormat(0, 5, tr(meta), "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func (g *PDFGenerator) writeSummary(pdf *fpdf.Fpdf, tr func(string) string, s models.Stats) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
	pdf.CellFormat(0, 8, fmt.Sprintf("Summary: %d incidents", s.Total), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	line := func(label string, rows []models.LabelCount) {
		if len(rows) == 0 {
			return
		}
		text := label + ":"
		for _, row := range rows {
			text += fmt.Sprintf("  %s=%d", row.Label, row.Count)
		}
		pdf.MultiCell(0, 5, tr(text), "", "L", false)
	}
	line("Risk bands", s.ByRiskBand)
	line("Severity", s.BySeverity)
	line("Status", s.ByStatus)
	line("Techniques", s.ByTechnique)
	pdf.Ln(4)
}

func (g *PDFGenerator) writeIncidentTable(pdf *fpdf.Fpdf, tr func(string) string, rows []exportRow) {
	colWidths := []float64{25, 70, 20, 18, 28, 30, 40, 22, 14}
	headers := []string{"ID", "Title", "Severity", "Risk", "User", "IP", "MITRE", "Status", "Owner"}

	header := func() {
		pdf.SetFillColor(colorTableHeader[0], colorTableHeader[1], colorTableHeader[2])
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 8)
		for i, h := range headers {
			pdf.CellFormat(colWidths[i], 7, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(rows) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(0, 8, "No incidents found.", "", 1, "L", false, 0, "")
		return
	}

	header()
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	fill := false
	for _, row := range rows {
		if pdf.GetY()+6 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		if fill {
			pdf.SetFillColor(colorTableAlt[0], colorTableAlt[1], colorTableAlt[2])
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])

		cells := []string{row.ID, clip(row.Title, 48), row.Severity, "", row.User, row.IP, clip(row.Technique, 26), row.Status, clip(row.Owner, 8)}
		for i, cell := range cells {
			if i == 3 {
				c := riskColor(row.SevClass)
				pdf.SetTextColor(c[0], c[1], c[2])
				pdf.CellFormat(colWidths[i], 6, fmt.Sprintf("%d", row.FinalRisk), "1", 0, "C", fill, 0, "")
				pdf.SetTextColor(colorTextDark[0], colorTextDark[1], colorTextDark[2])
				continue
			}
			pdf.CellFormat(colWidths[i], 6, tr(cell), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
		fill = !fill
	}
}

func (g *PDFGenerator) addPageNumbers(pdf *fpdf.Fpdf) {
	pdf.SetAutoPageBreak(false, 0)
	total := pdf.PageCount()
	for i := 1; i <= total; i++ {
		pdf.SetPage(i)
		_, pageHeight := pdf.GetPageSize()
		pdf.SetY(pageHeight - 12)
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(colorTextMuted[0], colorTextMuted[1], colorTextMuted[2])
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of %d", i, total), "", 0, "C", false, 0, "")
	}
}

func riskColor(class string) [3]int {
	switch class {
	case "critical":
		return colorCritical
	case "high":
		return colorHigh
	case "medium":
		return colorMedium
	default:
		return colorLow
	}
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
