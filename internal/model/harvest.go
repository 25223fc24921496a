package model

import "time"

// Harvest is the state of one harvesting run.
// Pipeline steps read and extend it in order: candidate URLs, observations,
// verification payloads, and finally output rows.
type Harvest struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the last step completed.
	FinishedAt time.Time `json:"finished_at"`

	// Queries lists the search queries issued, in order.
	Queries []string `json:"queries,omitempty"`

	// CandidateURLs is the normalized, deduplicated list of pages to scan.
	CandidateURLs []string `json:"candidate_urls"`

	// PagesScanned counts candidate pages whose processing returned.
	PagesScanned int `json:"pages_scanned"`

	// WorkerFailures counts units of work that panicked.
	WorkerFailures int `json:"worker_failures"`

	// ObservationCount counts every observation merged into Emails.
	ObservationCount int `json:"observation_count"`

	// Emails is the per-address aggregation.
	Emails *EmailMap `json:"-"`

	// VerificationCandidates is how many addresses could have been verified.
	VerificationCandidates int `json:"verification_candidates"`

	// Preview is true when the verification pass ran without making calls.
	Preview bool `json:"preview"`

	// Verifications maps an address to its raw verification payload.
	Verifications map[string]Verification `json:"verifications,omitempty"`

	// Rows are the output rows, sorted by email.
	Rows []OutputRow `json:"rows"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps"`

	// Cancelled is set when the run was interrupted.
	Cancelled bool `json:"cancelled"`

	// Error holds the first step error, if any.
	Error error `json:"-"`

	// ErrorMessage is the string form of Error for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewHarvest creates an empty Harvest stamped with the current time.
func NewHarvest() *Harvest {
	return &Harvest{
		StartedAt:     time.Now().UTC(),
		Emails:        NewEmailMap(),
		Verifications: make(map[string]Verification),
	}
}

// QualityCounts returns the number of rows per quality label.
func (h *Harvest) QualityCounts() map[string]int {
	counts := make(map[string]int, 3)
	for _, label := range QualityLabels() {
		counts[label.String()] = 0
	}
	for _, row := range h.Rows {
		counts[row.Quality]++
	}
	return counts
}

// Elapsed returns the run duration, or zero while the run is in progress.
func (h *Harvest) Elapsed() time.Duration {
	if h.FinishedAt.IsZero() {
		return 0
	}
	return h.FinishedAt.Sub(h.StartedAt)
}
