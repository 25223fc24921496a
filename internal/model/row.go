package model

import "time"

// Columns is the fixed column order of every export format.
var Columns = []string{
	"email",
	"first_seen_source",
	"all_sources",
	"domain",
	"mx_ok",
	"hunter_result",
	"hunter_confidence",
	"quality",
	"date_scraped_utc",
	"notes",
}

// TimestampLayout formats date_scraped_utc as ISO-8601 UTC with a Z suffix.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// OutputRow is the exported projection of an EmailRecord.
type OutputRow struct {
	Email            string `json:"email"`
	FirstSeenSource  string `json:"first_seen_source"`
	AllSources       string `json:"all_sources"`
	Domain           string `json:"domain"`
	MXOK             string `json:"mx_ok"`
	HunterResult     string `json:"hunter_result"`
	HunterConfidence string `json:"hunter_confidence"`
	Quality          string `json:"quality"`
	DateScrapedUTC   string `json:"date_scraped_utc"`
	Notes            string `json:"notes"`
}

// Values returns the row's fields in Columns order.
func (r OutputRow) Values() []string {
	return []string{
		r.Email,
		r.FirstSeenSource,
		r.AllSources,
		r.Domain,
		r.MXOK,
		r.HunterResult,
		r.HunterConfidence,
		r.Quality,
		r.DateScrapedUTC,
		r.Notes,
	}
}

// FormatTimestamp renders t for the date_scraped_utc column.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// YesNo renders a boolean as the literal "yes" or "no".
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
