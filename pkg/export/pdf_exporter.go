package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin          = 10.0
	pdfRowHeight       = 6.5
	pdfHeaderHeight    = 8.0
	pdfLandscapeColumn = 6
)

// PDFExporter renders a Dataset as a paginated table. Wide datasets switch to
// landscape and the column header repeats on every page.
type PDFExporter struct {
	now func() time.Time
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{now: time.Now}
}

// Render lays out the dataset under title. Cells wider than their column are
// truncated with an ellipsis.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation := "P"
	if len(data.Headers) > pdfLandscapeColumn {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pdfMargin, 15, pdfMargin)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageWidth, _ := pdf.GetPageSize()
	colWidth := (pageWidth - 2*pdfMargin) / float64(len(data.Headers))
	generated := e.now().UTC().Format("2006-01-02 15:04 MST")

	pdf.SetHeaderFunc(func() {
		if title != "" && pdf.PageNo() == 1 {
			pdf.SetFont("Helvetica", "B", 14)
			pdf.CellFormat(0, 10, tr(title), "", 1, "C", false, 0, "")
			pdf.Ln(2)
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 236, 245)
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, pdfHeaderHeight, fit(pdf, tr, header, colWidth), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s  |  %d rows  |  page %d/{nb}", generated, len(data.Rows), pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "", 8.5)
	for i, row := range data.Rows {
		fill := i%2 == 1
		pdf.SetFillColor(247, 247, 247)
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, pdfRowHeight, fit(pdf, tr, row[header], colWidth), "1", 0, "", fill, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(data.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, pdfRowHeight, "No records", "1", 1, "C", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// fit trims value until its translated form fits width at the current font,
// leaving a small cell padding.
func fit(pdf *gofpdf.Fpdf, tr func(string) string, value string, width float64) string {
	limit := width - 2
	if out := tr(value); pdf.GetStringWidth(out) <= limit {
		return out
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(tr(string(runes)+"...")) > limit {
		runes = runes[:len(runes)-1]
	}
	return tr(string(runes) + "...")
}
