// Package scoring classifies discovered email addresses into quality labels.
//
// The classification combines three signals: the verification provider's
// verdict or confidence, whether the address's domain accepts mail, and how
// many distinct pages referenced the address. Scoring is a pure function and
// is recomputed for every output row.
package scoring
