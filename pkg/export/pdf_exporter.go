package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into tabular PDF pages.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	return e.RenderSheets(title, []Sheet{{Data: data}})
}

// RenderSheets writes one page per sheet, each headed by the sheet name.
// Wide tables switch the page to landscape.
func (e *PDFExporter) RenderSheets(title string, sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("pdf requires at least one sheet")
	}
	for _, sheet := range sheets {
		if err := sheet.Data.validate(); err != nil {
			return nil, fmt.Errorf("pdf: %w", err)
		}
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	for _, sheet := range sheets {
		orientation, width := "P", 190.0
		if len(sheet.Data.Headers) > 6 {
			orientation, width = "L", 277.0
		}
		pdf.AddPageFormat(orientation, pdf.GetPageSizeStr("A4"))

		if title != "" {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		}
		if sheet.Name != "" {
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 8, sheet.Name, "", 1, "L", false, 0, "")
		}
		pdf.Ln(3)

		pdf.SetFont("Arial", "B", 9)
		colWidth := width / float64(len(sheet.Data.Headers))
		for _, header := range sheet.Data.Headers {
			pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 8)
		for _, record := range sheet.Data.Records() {
			for _, value := range record {
				pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
