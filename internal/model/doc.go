// Package model defines the data structures shared by the harvesting
// pipeline.
//
// This package contains the following main types:
//   - EmailObservation: one discovery of an address on one source
//   - EmailRecord / EmailMap: per-email aggregation of observations
//   - Verification: the raw verification payload returned by the provider
//   - QualityLabel: the High / Medium / Low classification of an address
//   - OutputRow: the exported projection of a record
//   - Harvest: the state of one run, threaded through pipeline steps
//
// Models live in their own package so that crawler, pipeline and report
// can share them without import cycles.
package model
