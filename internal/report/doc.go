// Package report writes harvest results.
//
// Exporters write the output rows in a fixed column order:
//   - CSVWriter: comma-separated values with a header row
//   - JSONWriter: a JSON array of row objects
//   - XLSXWriter: a single-sheet spreadsheet
//
// Summary writers describe the run itself:
//   - SimpleWriter: plain text for terminal display
//   - MarkdownWriter: Markdown with a quality distribution chart
//
// All of them implement Writer.
package report
