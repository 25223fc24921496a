package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/emailharvester/internal/config"
	"github.com/nao1215/emailharvester/internal/database"
	"github.com/nao1215/emailharvester/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived harvest runs",
		Long: `History shows the runs recorded in the run archive.

Examples:
  # List the 20 most recent runs
  emailharvester history

  # Show the rows of run 7
  emailharvester history --id 7`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().Int64P("id", "i", 0,
		"Show the rows of the run with this ID")
	cmd.Flags().IntP("limit", "n", 20,
		"Number of runs to list (0 lists all)")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run archive database")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open run archive: %w", err)
	}
	defer db.Close()

	if id > 0 {
		return showRun(cmd, db, id)
	}
	return listRuns(cmd, db, limit)
}

// listRuns prints one line per archived run, newest first.
func listRuns(cmd *cobra.Command, db *database.RunDB, limit int) error {
	out := cmd.OutOrStdout()

	runs, err := db.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No archived runs found.")
		fmt.Fprintln(out, "\nUse 'emailharvester harvest' to run a harvest.")
		return nil
	}

	fmt.Fprintf(out, "Archived runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-6s  %-20s  %-9s  %-7s  %-7s  %s\n", "ID", "Started", "Status", "Pages", "Emails", "Quality")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 72))

	for _, run := range runs {
		fmt.Fprintf(out, "  %-6d  %-20s  %-9s  %-7d  %-7d  %s\n",
			run.ID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			runStatus(run),
			run.PagesScanned,
			run.UniqueEmails,
			formatQualitySummary(run.QualitySummary),
		)
	}

	fmt.Fprintln(out, "\nUse 'emailharvester history --id <id>' to see the rows of a run.")
	return nil
}

// showRun prints the header and rows of one run.
func showRun(cmd *cobra.Command, db *database.RunDB, id int64) error {
	out := cmd.OutOrStdout()

	run, err := db.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", id)
	}

	rows, err := db.GetRunRows(cmd.Context(), id)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run %d (%s, %s)\n", run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), runStatus(*run))
	fmt.Fprintf(out, "  config digest:  %s\n", run.ConfigDigest)
	fmt.Fprintf(out, "  candidate URLs: %d\n", run.CandidateURLs)
	fmt.Fprintf(out, "  pages scanned:  %d\n", run.PagesScanned)
	fmt.Fprintf(out, "  verifications:  %d\n\n", run.Verifications)

	writeRows(out, rows)
	return nil
}

// writeRows prints rows as an aligned table.
func writeRows(out io.Writer, rows []model.OutputRow) {
	if len(rows) == 0 {
		fmt.Fprintln(out, "  No rows.")
		return
	}

	fmt.Fprintf(out, "  %-40s  %-7s  %-5s  %-12s  %s\n", "Email", "Quality", "MX", "Hunter", "First seen")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 100))
	for _, row := range rows {
		fmt.Fprintf(out, "  %-40s  %-7s  %-5s  %-12s  %s\n",
			row.Email, row.Quality, row.MXOK, row.HunterResult, row.FirstSeenSource)
	}
}

// runStatus summarizes how a run ended.
func runStatus(run database.RunRecord) string {
	switch {
	case run.Error != "" && !run.Cancelled:
		return "error"
	case run.Cancelled:
		return "cancelled"
	case run.Preview:
		return "preview"
	default:
		return "complete"
	}
}

// formatQualitySummary renders label counts as "H:1 M:2 L:0".
func formatQualitySummary(summary map[string]int) string {
	if summary == nil {
		return "N/A"
	}

	parts := make([]string, 0, 3)
	for _, label := range model.QualityLabels() {
		name := label.String()
		parts = append(parts, fmt.Sprintf("%s:%d", name[:1], summary[name]))
	}
	return strings.Join(parts, " ")
}
