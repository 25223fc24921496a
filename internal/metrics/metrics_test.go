package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// exposition renders the recorder's counters in the text format.
func exposition(t *testing.T, r *Recorder) string {
	t.Helper()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

// TestRecorder tests counter updates.
func TestRecorder(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.QueryIssued()
	r.QueryIssued()
	r.CandidateURLs(5)
	r.PageScanned(300 * time.Millisecond)
	r.WorkerFailed()
	r.Observation("page")
	r.Observation("mailto")
	r.Observation("page")
	r.UniqueEmails(7)
	r.Verification("deliverable")
	r.Verification("")
	r.Row("High")

	out := exposition(t, r)
	for _, want := range []string{
		"emailharvester_search_queries_total 2",
		"emailharvester_candidate_urls_total 5",
		"emailharvester_pages_scanned_total 1",
		"emailharvester_worker_failures_total 1",
		`emailharvester_observations_total{note="page"} 2`,
		`emailharvester_observations_total{note="mailto"} 1`,
		"emailharvester_unique_emails 7",
		`emailharvester_verifications_total{result="unknown"} 1`,
		`emailharvester_rows_total{quality="High"} 1`,
		"emailharvester_page_duration_seconds_count 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

// TestNilRecorder tests that a nil recorder is a no-op.
func TestNilRecorder(t *testing.T) {
	t.Parallel()

	var r *Recorder
	r.QueryIssued()
	r.CandidateURLs(1)
	r.PageScanned(time.Second)
	r.WorkerFailed()
	r.Observation("page")
	r.UniqueEmails(1)
	r.Verification("ok")
	r.Row("Low")
}

// TestWriteTextfile tests the textfile export.
func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Row("Medium")

	path := filepath.Join(t.TempDir(), "harvest.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read metrics file: %v", err)
	}
	if !strings.Contains(string(data), `emailharvester_rows_total{quality="Medium"} 1`) {
		t.Errorf("metrics file missing row counter:\n%s", data)
	}
}

// TestHandler tests the HTTP exposition.
func TestHandler(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.QueryIssued()

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "emailharvester_search_queries_total 1") {
		t.Errorf("unexpected exposition:\n%s", body)
	}
}

// TestServe tests listening and shutdown.
func TestServe(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.Serve(ctx, "127.0.0.1:0", nil); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if err := r.Serve(ctx, "invalid-address", nil); err == nil {
		t.Error("expected error for invalid address")
	}
}
