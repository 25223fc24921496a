package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/emailharvester/internal/model"
)

// MarkdownWriter outputs the run summary as Markdown, including a mermaid
// pie chart of the quality distribution.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary of harvest.
func (w *MarkdownWriter) Write(harvest *model.Harvest) (int, error) {
	return w.WriteSummary(NewSummary(harvest))
}

// WriteSummary outputs an already condensed summary.
func (w *MarkdownWriter) WriteSummary(summary *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeQuality(md, summary)
	w.writeDomains(md, summary)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Generated by [emailharvester](https://github.com/nao1215/emailharvester)*")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *Summary) {
	md.H1("Email Harvest Summary")
	md.PlainText("")

	rows := [][]string{
		{"Started", summary.StartedAt.Format("2006-01-02 15:04:05 MST")},
		{"Elapsed", summary.Elapsed.Round(time.Millisecond).String()},
		{"Status", statusIcon(summary) + " " + summary.Status()},
	}
	if summary.Queries > 0 {
		rows = append(rows, []string{"Search Queries", strconv.Itoa(summary.Queries)})
	}
	rows = append(rows,
		[]string{"Candidate URLs", strconv.Itoa(summary.CandidateURLs)},
		[]string{"Pages Scanned", strconv.Itoa(summary.PagesScanned)},
		[]string{"Worker Failures", strconv.Itoa(summary.WorkerFailures)},
		[]string{"Unique Emails", strconv.Itoa(summary.UniqueEmails)},
		[]string{"Verification", summary.VerificationStatus()},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.Preview {
		md.Note(fmt.Sprintf("Preview mode: %d address(es) could have been verified. "+
			"Re-run with `--yes-run-hunter` to perform the calls.", summary.VerificationCandidates))
		md.PlainText("")
	}
}

func statusIcon(summary *Summary) string {
	switch {
	case summary.Cancelled:
		return "⚠️"
	case summary.Error != "":
		return "❌"
	default:
		return "✅"
	}
}

func (w *MarkdownWriter) writeQuality(md *markdown.Markdown, summary *Summary) {
	md.H2("Quality")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.Quality))
	for _, q := range summary.Quality {
		rows = append(rows, []string{q.Label, strconv.Itoa(q.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Quality", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.UniqueEmails == 0 {
		md.Tip("No email addresses were found.")
		md.PlainText("")
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Quality Distribution"),
		piechart.WithShowData(true),
	)
	for _, q := range summary.Quality {
		if q.Count > 0 {
			chart.LabelAndIntValue(q.Label, uint64(q.Count))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeDomains(md *markdown.Markdown, summary *Summary) {
	if len(summary.TopDomains) == 0 {
		return
	}

	md.H2("Top Domains")
	md.PlainText("")

	rows := make([][]string, 0, len(summary.TopDomains))
	for _, d := range summary.TopDomains {
		rows = append(rows, []string{"`" + d.Label + "`", strconv.Itoa(d.Count)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Domain", "Emails"},
		Rows:   rows,
	})
	md.PlainText("")
}
