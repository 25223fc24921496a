package model

import "strings"

// Note tags attached to observations.
const (
	// NotePage marks an address found in the text of a candidate page.
	NotePage = "page"

	// NoteMailto marks an address taken from a mailto: link.
	NoteMailto = "mailto"

	// NoteContactPage marks an address found on a linked contact/about page.
	NoteContactPage = "contact_page"

	// noteHunterDomainPrefix prefixes addresses returned by domain search.
	noteHunterDomainPrefix = "hunter_domain:"
)

// HunterDomainNote returns the note tag for an address returned by the
// verification provider's domain search with the given confidence.
func HunterDomainNote(confidence string) string {
	return noteHunterDomainPrefix + confidence
}

// IsHunterDomainNote reports whether note was produced by domain search.
func IsHunterDomainNote(note string) bool {
	return strings.HasPrefix(note, noteHunterDomainPrefix)
}

// EmailObservation is a single discovery of an email address.
// Observations are created once and never modified.
type EmailObservation struct {
	// Email is the lowercased address.
	Email string `json:"email"`

	// Source is the URL the address was attributed to.
	Source string `json:"source"`

	// Note is the tag describing how the address was discovered.
	Note string `json:"note"`
}

// NewEmailObservation creates an observation, lowercasing the address.
func NewEmailObservation(email, source, note string) EmailObservation {
	return EmailObservation{
		Email:  strings.ToLower(email),
		Source: source,
		Note:   note,
	}
}
