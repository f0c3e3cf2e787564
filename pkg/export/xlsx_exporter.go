package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Sheet1"

// XLSXExporter renders datasets into a single-sheet workbook. Group rows are
// merged across all columns and cells whose value has an entry in Fills get
// that background colour.
type XLSXExporter struct {
	Fills map[string]string
}

// NewXLSXExporter constructs an XLSX exporter with optional value fills.
func NewXLSXExporter(fills map[string]string) *XLSXExporter {
	return &XLSXExporter{Fills: fills}
}

// Render produces workbook bytes for the dataset.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx header style: %w", err)
	}
	groupStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0EBF5"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx group style: %w", err)
	}
	fillStyles := make(map[string]int, len(e.Fills))
	for value, color := range e.Fills {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return nil, fmt.Errorf("xlsx fill style %s: %w", value, err)
		}
		fillStyles[value] = id
	}

	row := 1
	if data.Title != "" {
		if err := f.SetCellValue(xlsxSheet, "A1", data.Title); err != nil {
			return nil, fmt.Errorf("xlsx title: %w", err)
		}
		row = 3
	}

	for col, header := range data.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(xlsxSheet, cell, header); err != nil {
			return nil, fmt.Errorf("xlsx header %s: %w", header, err)
		}
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(data.Headers), row)
	if err := f.SetCellStyle(xlsxSheet, first, last, headerStyle); err != nil {
		return nil, fmt.Errorf("xlsx header style: %w", err)
	}

	for i, record := range data.Rows {
		row++
		if data.IsGroupRow(i) {
			start, _ := excelize.CoordinatesToCellName(1, row)
			end, _ := excelize.CoordinatesToCellName(len(data.Headers), row)
			if err := f.SetCellValue(xlsxSheet, start, record[data.Headers[0]]); err != nil {
				return nil, fmt.Errorf("xlsx group row: %w", err)
			}
			if len(data.Headers) > 1 {
				if err := f.MergeCell(xlsxSheet, start, end); err != nil {
					return nil, fmt.Errorf("xlsx merge group row: %w", err)
				}
			}
			if err := f.SetCellStyle(xlsxSheet, start, end, groupStyle); err != nil {
				return nil, fmt.Errorf("xlsx group style: %w", err)
			}
			continue
		}
		for col, header := range data.Headers {
			value := record[header]
			if value == "" {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(xlsxSheet, cell, value); err != nil {
				return nil, fmt.Errorf("xlsx cell %s: %w", cell, err)
			}
			if style, ok := fillStyles[value]; ok {
				if err := f.SetCellStyle(xlsxSheet, cell, cell, style); err != nil {
					return nil, fmt.Errorf("xlsx cell style %s: %w", cell, err)
				}
			}
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(data.Headers))
	if err := f.SetColWidth(xlsxSheet, "A", lastCol, 18); err != nil {
		return nil, fmt.Errorf("xlsx column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
