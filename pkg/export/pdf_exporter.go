package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// landscapeColumns is the column count above which pages switch to landscape.
const landscapeColumns = 8

// PDFExporter renders datasets into a basic tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation, width := "P", 190.0
	if len(data.Headers) > landscapeColumns {
		orientation, width = "L", 277.0
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(data.Title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	fontSize := 9.0
	if len(data.Headers) > landscapeColumns {
		fontSize = 5
	}
	pdf.SetFont("Arial", "B", fontSize+1)
	colWidth := width / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	for i, row := range data.Rows {
		if data.IsGroupRow(i) {
			pdf.SetFont("Arial", "B", fontSize+1)
			pdf.SetFillColor(224, 235, 245)
			pdf.CellFormat(width, 7, row[data.Headers[0]], "1", 1, "", true, 0, "")
			continue
		}
		pdf.SetFont("Arial", "", fontSize)
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
