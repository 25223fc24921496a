package main

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/emailharvester/internal/database"
	"github.com/nao1215/emailharvester/internal/model"
)

// runHistory executes the history command and returns its stdout.
func runHistory(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewHistoryCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// archiveFixture stores one finished run and returns the archive dir and ID.
func archiveFixture(t *testing.T) (string, int64) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer db.Close()

	harvest := model.NewHarvest()
	harvest.FinishedAt = harvest.StartedAt.Add(time.Minute)
	harvest.PagesScanned = 4
	harvest.Rows = []model.OutputRow{
		{Email: "info@example.com", FirstSeenSource: "https://example.com", MXOK: "yes", Quality: "Medium"},
		{Email: "ceo@example.com", FirstSeenSource: "https://example.com/about", MXOK: "yes", HunterResult: "deliverable", Quality: "High"},
	}

	id, err := db.SaveRun(context.Background(), harvest, "digest123")
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}
	return dir, id
}

// TestHistoryCmd tests listing runs and showing one run.
func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("empty archive", func(t *testing.T) {
		t.Parallel()

		out, err := runHistory(t, "--db-dir", t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No archived runs found.") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("lists runs with quality summary", func(t *testing.T) {
		t.Parallel()

		dir, id := archiveFixture(t)
		out, err := runHistory(t, "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Archived runs (1)", strconv.FormatInt(id, 10), "complete", "H:1 M:1 L:0"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output %q", want, out)
			}
		}
	})

	t.Run("shows rows of one run", func(t *testing.T) {
		t.Parallel()

		dir, id := archiveFixture(t)
		out, err := runHistory(t, "--db-dir", dir, "--id", strconv.FormatInt(id, 10))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"digest123", "ceo@example.com", "deliverable", "info@example.com"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output %q", want, out)
			}
		}
		if strings.Index(out, "ceo@example.com") > strings.Index(out, "info@example.com") {
			t.Error("expected rows sorted by email")
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		t.Parallel()

		dir, _ := archiveFixture(t)
		if _, err := runHistory(t, "--db-dir", dir, "--id", "999"); err == nil {
			t.Error("expected error for unknown run")
		}
	})
}

// TestRunStatus tests the status column.
func TestRunStatus(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		run  database.RunRecord
		want string
	}{
		{database.RunRecord{}, "complete"},
		{database.RunRecord{Preview: true}, "preview"},
		{database.RunRecord{Cancelled: true, Error: "context canceled"}, "cancelled"},
		{database.RunRecord{Error: "boom"}, "error"},
	}

	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			t.Parallel()
			if got := runStatus(tc.run); got != tc.want {
				t.Errorf("runStatus() = %q, want %q", got, tc.want)
			}
		})
	}
}
