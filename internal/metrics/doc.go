// Package metrics exposes harvest run counters in the Prometheus format.
//
// Counters live on a private registry owned by a Recorder, so tests and
// repeated runs in one process never collide on global registration. A run
// can publish them over HTTP while it is in progress, write them to a
// textfile for node_exporter when it finishes, or both.
//
// A nil *Recorder is valid and records nothing.
package metrics
