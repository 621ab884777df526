package importer

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	TemplateFilename  = "ledger-import-template.xlsx"
	templateSheetName = "Ledger Template"
)

var templateRows = [][]any{
	{"Date", "Bill", "Cash", "Notes"},
	{"25/01/2024", 5000, 3000, "Sample entry 1"},
	{"26/01/2024", 8000, 12000, "Sample entry 2"},
	{"27/01/2024", 3000, 2500, "Sample entry 3"},
}

// Template builds the sample workbook users fill in before importing.
func Template() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for i, row := range templateRows {
		ref, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(templateSheetName, ref, &row); err != nil {
			return nil, fmt.Errorf("write template row %d: %w", i+1, err)
		}
	}

	thin := func(side string) excelize.Border {
		return excelize.Border{Type: side, Color: "000000", Style: 1}
	}
	style, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"CCCCCC"}, Pattern: 1},
		Border: []excelize.Border{thin("top"), thin("bottom"), thin("left"), thin("right")},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(templateSheetName, "A1", "D1", style); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}
	for col, width := range map[string]float64{"A": 12, "B": 10, "C": 10, "D": 25} {
		if err := f.SetColWidth(templateSheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write template: %w", err)
	}
	return buf.Bytes(), nil
}
