package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/nao1215/emailharvester/internal/model"
)

// maxTopDomains bounds the domain table of a summary.
const maxTopDomains = 10

// LabelCount is a row count for one quality label or domain.
type LabelCount struct {
	Label string
	Count int
}

// Summary is the condensed view of a harvest shown after a run.
type Summary struct {
	StartedAt      time.Time
	Elapsed        time.Duration
	Queries        int
	CandidateURLs  int
	PagesScanned   int
	WorkerFailures int
	Observations   int
	UniqueEmails   int

	// VerificationCandidates is zero when the verification pass did not run.
	VerificationCandidates int
	Verified               int
	Preview                bool

	// Quality maps each label to its row count, High first.
	Quality []LabelCount

	// TopDomains lists the domains with the most rows.
	TopDomains []LabelCount

	Cancelled bool
	Error     string
}

// NewSummary condenses harvest.
func NewSummary(harvest *model.Harvest) *Summary {
	s := &Summary{
		StartedAt:              harvest.StartedAt,
		Elapsed:                harvest.Elapsed(),
		Queries:                len(harvest.Queries),
		CandidateURLs:          len(harvest.CandidateURLs),
		PagesScanned:           harvest.PagesScanned,
		WorkerFailures:         harvest.WorkerFailures,
		Observations:           harvest.ObservationCount,
		UniqueEmails:           len(harvest.Rows),
		VerificationCandidates: harvest.VerificationCandidates,
		Verified:               len(harvest.Verifications),
		Preview:                harvest.Preview,
		Cancelled:              harvest.Cancelled,
		Error:                  harvest.ErrorMessage,
	}
	if harvest.Emails != nil && harvest.Emails.Len() > s.UniqueEmails {
		s.UniqueEmails = harvest.Emails.Len()
	}

	counts := harvest.QualityCounts()
	for _, label := range model.QualityLabels() {
		s.Quality = append(s.Quality, LabelCount{Label: label.String(), Count: counts[label.String()]})
	}

	s.TopDomains = topDomains(harvest.Rows)
	return s
}

// topDomains counts rows per domain, largest first, ties by name.
func topDomains(rows []model.OutputRow) []LabelCount {
	perDomain := make(map[string]int)
	for _, row := range rows {
		if row.Domain != "" {
			perDomain[row.Domain]++
		}
	}

	domains := make([]LabelCount, 0, len(perDomain))
	for domain, count := range perDomain {
		domains = append(domains, LabelCount{Label: domain, Count: count})
	}
	slices.SortFunc(domains, func(a, b LabelCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})

	if len(domains) > maxTopDomains {
		domains = domains[:maxTopDomains]
	}
	return domains
}

// Status is a one-line run status.
func (s *Summary) Status() string {
	switch {
	case s.Cancelled:
		return "Cancelled (partial results)"
	case s.Error != "":
		return "Error - " + s.Error
	default:
		return "Complete"
	}
}

// VerificationStatus describes what the verification pass did.
func (s *Summary) VerificationStatus() string {
	switch {
	case s.VerificationCandidates == 0:
		return "disabled"
	case s.Preview:
		return "preview (no calls made)"
	default:
		return "performed"
	}
}
