package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nao1215/emailharvester/internal/model"
)

// SheetName is the worksheet holding the exported rows.
const SheetName = "emails"

// XLSXWriter exports rows as a spreadsheet with a bold header row.
type XLSXWriter struct {
	baseWriter
}

// NewXLSXWriter creates an XLSXWriter that outputs to the given writer.
func NewXLSXWriter(output io.Writer) *XLSXWriter {
	return &XLSXWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write builds the workbook in memory and streams it to the output.
func (w *XLSXWriter) Write(harvest *model.Harvest) (int, error) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck // in-memory workbook

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return 0, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := model.Columns
	if err := setRow(f, 1, &header); err != nil {
		return 0, err
	}
	for i, row := range harvest.Rows {
		values := row.Values()
		if err := setRow(f, i+2, &values); err != nil {
			return 0, err
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, style); err != nil {
		return 0, fmt.Errorf("failed to style header: %w", err)
	}

	n, err := f.WriteTo(w.output)
	return int(n), err
}

// setRow writes values into the given 1-based row.
func setRow(f *excelize.File, row int, values *[]string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
