package database

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/nao1215/emailharvester/internal/config"
	"github.com/nao1215/emailharvester/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *RunDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// newTestHarvest returns a finished harvest with two rows.
func newTestHarvest() *model.Harvest {
	h := model.NewHarvest()
	h.StartedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h.FinishedAt = h.StartedAt.Add(time.Minute)
	h.Queries = []string{"q"}
	h.CandidateURLs = []string{"https://example.com", "https://shop.io"}
	h.PagesScanned = 2
	h.Verifications["info@example.com"] = model.Verification{"result": "deliverable"}
	h.Rows = []model.OutputRow{
		{Email: "sales@example.com", Domain: "example.com", MXOK: "yes", Quality: "Medium", Notes: model.NoteMailto},
		{Email: "info@example.com", Domain: "example.com", MXOK: "yes", HunterResult: "deliverable", Quality: "High", Notes: model.NotePage},
	}
	return h
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails for a missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected an error for a missing database")
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if _, err := db.SaveRun(context.Background(), newTestHarvest(), "d"); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer db.Close()

		runs, err := db.ListRuns(context.Background(), 0)
		if err != nil || len(runs) != 1 {
			t.Errorf("expected one archived run, got %v, %v", runs, err)
		}
	})
}

// TestSaveRun tests archiving and reading back a run.
func TestSaveRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	h := newTestHarvest()
	id, err := db.SaveRun(ctx, h, "abc123")
	if err != nil {
		t.Fatalf("failed to save run: %v", err)
	}

	run, err := db.GetRun(ctx, id)
	if err != nil || run == nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if !run.StartedAt.Equal(h.StartedAt) || !run.FinishedAt.Equal(h.FinishedAt) {
		t.Errorf("timestamps not preserved: %v %v", run.StartedAt, run.FinishedAt)
	}
	if run.ConfigDigest != "abc123" || run.CandidateURLs != 2 || run.UniqueEmails != 2 || run.Verifications != 1 {
		t.Errorf("unexpected run %+v", run)
	}
	if run.QualitySummary["High"] != 1 || run.QualitySummary["Medium"] != 1 || run.QualitySummary["Low"] != 0 {
		t.Errorf("unexpected quality summary %v", run.QualitySummary)
	}

	rows, err := db.GetRunRows(ctx, id)
	if err != nil {
		t.Fatalf("failed to get rows: %v", err)
	}
	want := []model.OutputRow{h.Rows[1], h.Rows[0]}
	if !slices.Equal(rows, want) {
		t.Errorf("rows = %+v, want %+v", rows, want)
	}
}

// TestListRuns tests run listing.
func TestListRuns(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for range 3 {
		h := newTestHarvest()
		h.Cancelled = true
		if _, err := db.SaveRun(ctx, h, "d"); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}

	runs, err := db.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID <= runs[1].ID {
		t.Errorf("expected most recent first: %d, %d", runs[0].ID, runs[1].ID)
	}
	if !runs[0].Cancelled || runs[0].Preview {
		t.Errorf("flags not preserved: %+v", runs[0])
	}
}

// TestGetRunMissing tests lookups of unknown runs.
func TestGetRunMissing(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	run, err := db.GetRun(context.Background(), 42)
	if err != nil || run != nil {
		t.Errorf("expected nil, nil; got %v, %v", run, err)
	}
	rows, err := db.GetRunRows(context.Background(), 42)
	if err != nil || len(rows) != 0 {
		t.Errorf("expected no rows; got %v, %v", rows, err)
	}
}

// TestConfigDigest tests input digests.
func TestConfigDigest(t *testing.T) {
	t.Parallel()

	base := config.NewConfig()
	base.Categories = []string{"dentist"}

	withKey := config.NewConfig()
	withKey.Categories = []string{"dentist"}
	withKey.HunterKey = "secret"
	withKey.Output = "other.csv"

	other := config.NewConfig()
	other.Categories = []string{"plumber"}

	d := ConfigDigest(base)
	if len(d) != 64 {
		t.Errorf("expected a 64 character hex digest, got %q", d)
	}
	if ConfigDigest(withKey) != d {
		t.Error("keys and output path should not change the digest")
	}
	if ConfigDigest(other) == d {
		t.Error("different categories should change the digest")
	}
}

// TestParseTimestamp tests timestamp parsing.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in   string
		want time.Time
	}{
		{"2024-05-01T12:00:00.5Z", time.Date(2024, 5, 1, 12, 0, 0, 500000000, time.UTC)},
		{"2024-05-01 12:00:00", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		{"garbage", time.Time{}},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tc.in); !got.Equal(tc.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
