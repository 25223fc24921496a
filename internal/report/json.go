package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/emailharvester/internal/model"
)

// JSONWriter exports rows as a JSON array of objects keyed by column name.
type JSONWriter struct {
	baseWriter

	// indent is the per-level indentation. Empty means compact output.
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent pretty-prints the array using indent for each level.
func WithIndent(indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = indent
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs harvest.Rows followed by a newline. An empty harvest is
// written as [].
func (w *JSONWriter) Write(harvest *model.Harvest) (int, error) {
	rows := harvest.Rows
	if rows == nil {
		rows = []model.OutputRow{}
	}

	counter := &countingWriter{w: w.output}
	enc := json.NewEncoder(counter)
	enc.SetIndent("", w.indent)
	if err := enc.Encode(rows); err != nil {
		return counter.n, err
	}
	return counter.n, nil
}
