package report

import (
	"encoding/csv"
	"io"

	"github.com/nao1215/emailharvester/internal/model"
)

// CSVWriter exports rows as CSV with a header row.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the header and one record per row. An empty harvest still
// produces the header.
func (w *CSVWriter) Write(harvest *model.Harvest) (int, error) {
	counter := &countingWriter{w: w.output}
	cw := csv.NewWriter(counter)

	if err := cw.Write(model.Columns); err != nil {
		return counter.n, err
	}
	for _, row := range harvest.Rows {
		if err := cw.Write(row.Values()); err != nil {
			return counter.n, err
		}
	}

	cw.Flush()
	return counter.n, cw.Error()
}
