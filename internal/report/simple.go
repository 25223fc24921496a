package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/emailharvester/internal/model"
)

// SimpleWriter outputs a plain-text run summary for terminal display.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the summary of harvest.
func (w *SimpleWriter) Write(harvest *model.Harvest) (int, error) {
	return w.WriteSummary(NewSummary(harvest))
}

// WriteSummary outputs an already condensed summary.
func (w *SimpleWriter) WriteSummary(summary *Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeCounts(&sb, summary)
	w.writeQuality(&sb, summary)
	w.writeDomains(&sb, summary)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      EMAIL HARVEST SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Started:        %s\n", summary.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Elapsed:        %s\n", summary.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:         %s\n", summary.Status())
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCounts(sb *strings.Builder, summary *Summary) {
	writeSection(sb, "RUN")

	if summary.Queries > 0 {
		fmt.Fprintf(sb, "  Search queries:   %d\n", summary.Queries)
	}
	fmt.Fprintf(sb, "  Candidate URLs:   %d\n", summary.CandidateURLs)
	fmt.Fprintf(sb, "  Pages scanned:    %d\n", summary.PagesScanned)
	if summary.WorkerFailures > 0 {
		fmt.Fprintf(sb, "  Worker failures:  %d\n", summary.WorkerFailures)
	}
	fmt.Fprintf(sb, "  Observations:     %d\n", summary.Observations)
	fmt.Fprintf(sb, "  Unique emails:    %d\n", summary.UniqueEmails)
	fmt.Fprintf(sb, "  Verification:     %s\n", summary.VerificationStatus())
	if summary.VerificationCandidates > 0 && !summary.Preview {
		fmt.Fprintf(sb, "  Verified:         %d of %d\n", summary.Verified, summary.VerificationCandidates)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeQuality(sb *strings.Builder, summary *Summary) {
	writeSection(sb, "QUALITY")

	for _, q := range summary.Quality {
		fmt.Fprintf(sb, "  %-8s %d\n", strings.ToUpper(q.Label)+":", q.Count)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeDomains(sb *strings.Builder, summary *Summary) {
	writeSection(sb, "TOP DOMAINS")

	if len(summary.TopDomains) == 0 {
		sb.WriteString("  No addresses exported\n")
	}
	for _, d := range summary.TopDomains {
		fmt.Fprintf(sb, "  [+] %s (%d)\n", d.Label, d.Count)
	}
	sb.WriteString("\n")
}

// writeSection writes a dashed section title.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}
