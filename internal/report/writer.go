package report

import (
	"fmt"
	"io"

	"github.com/nao1215/emailharvester/internal/config"
	"github.com/nao1215/emailharvester/internal/model"
)

// Writer writes a harvest to its destination.
type Writer interface {
	// Write returns the number of bytes written.
	Write(harvest *model.Harvest) (int, error)
}

// NewExporter returns the row exporter for format.
func NewExporter(format string, output io.Writer) (Writer, error) {
	switch format {
	case config.FormatCSV:
		return NewCSVWriter(output), nil
	case config.FormatJSON:
		return NewJSONWriter(output, WithIndent("  ")), nil
	case config.FormatXLSX:
		return NewXLSXWriter(output), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownFormat, format)
	}
}

// NewSummaryWriter returns the summary writer for style, or nil for
// config.SummaryNone.
func NewSummaryWriter(style string, output io.Writer) (Writer, error) {
	switch style {
	case config.SummaryText:
		return NewSimpleWriter(output), nil
	case config.SummaryMarkdown:
		return NewMarkdownWriter(output), nil
	case config.SummaryNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownSummary, style)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// countingWriter counts the bytes passed to an underlying writer.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
