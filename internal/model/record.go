package model

import (
	"slices"
	"strings"
)

// EmailRecord aggregates every observation of one address.
//
// FirstSource and Notes are fixed by the first observation merged into the
// record and are never overwritten; later observations only add sources.
type EmailRecord struct {
	// Email is the lowercased address.
	Email string `json:"email"`

	// FirstSource is the source of the first merged observation.
	FirstSource string `json:"first_source"`

	// Notes is the tag of the first merged observation.
	Notes string `json:"notes"`

	// sources is the set of distinct sources seen for this address.
	sources map[string]struct{}
}

// newEmailRecord creates a record seeded from its first observation.
func newEmailRecord(obs EmailObservation) *EmailRecord {
	return &EmailRecord{
		Email:       obs.Email,
		FirstSource: obs.Source,
		Notes:       obs.Note,
		sources:     map[string]struct{}{obs.Source: {}},
	}
}

// Merge adds the source of obs to the record.
func (r *EmailRecord) Merge(obs EmailObservation) {
	r.sources[obs.Source] = struct{}{}
}

// Sources returns the distinct sources in lexicographic order.
func (r *EmailRecord) Sources() []string {
	out := make([]string, 0, len(r.sources))
	for s := range r.sources {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// SourceCount returns the number of distinct sources.
func (r *EmailRecord) SourceCount() int {
	return len(r.sources)
}

// EmailMap is the aggregation of all observations of a run, keyed by
// lowercased address. It is not safe for concurrent use; the pipeline
// writes to it from the coordinating goroutine only.
type EmailMap struct {
	records map[string]*EmailRecord
}

// NewEmailMap creates an empty EmailMap.
func NewEmailMap() *EmailMap {
	return &EmailMap{records: make(map[string]*EmailRecord)}
}

// Add merges one observation into the map.
func (m *EmailMap) Add(obs EmailObservation) {
	email := strings.ToLower(obs.Email)
	if email == "" {
		return
	}
	obs.Email = email

	if rec, ok := m.records[email]; ok {
		rec.Merge(obs)
		return
	}
	m.records[email] = newEmailRecord(obs)
}

// AddAll merges observations in order.
func (m *EmailMap) AddAll(observations []EmailObservation) {
	for _, obs := range observations {
		m.Add(obs)
	}
}

// Get returns the record for email, if any.
func (m *EmailMap) Get(email string) (*EmailRecord, bool) {
	rec, ok := m.records[strings.ToLower(email)]
	return rec, ok
}

// Emails returns all addresses in lexicographic order.
func (m *EmailMap) Emails() []string {
	out := make([]string, 0, len(m.records))
	for email := range m.records {
		out = append(out, email)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of unique addresses.
func (m *EmailMap) Len() int {
	return len(m.records)
}
