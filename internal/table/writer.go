package table

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX writes the grid to an xlsx workbook with a synthetic header row.
func WriteXLSX(grid Grid, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	cols := 0
	if len(grid) > 0 {
		cols = len(grid[0])
	}
	for c, name := range Headers(cols) {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("set header %s: %w", name, err)
		}
	}

	for r, row := range grid {
		for c, text := range row {
			if text == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return fmt.Errorf("cell name (%d,%d): %w", r, c, err)
			}
			if err := f.SetCellValue(sheet, cell, text); err != nil {
				return fmt.Errorf("set cell (%d,%d): %w", r, c, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// WriteCSV writes the grid as UTF-8 CSV with the same synthetic header row.
func WriteCSV(grid Grid, w io.Writer) error {
	cw := csv.NewWriter(w)

	cols := 0
	if len(grid) > 0 {
		cols = len(grid[0])
	}
	if err := cw.Write(Headers(cols)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range grid {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
