// Package database archives finished harvest runs in SQLite.
//
// Each run stores its timing, counters, a digest of the inputs and the
// exported rows. The archive is written after a run and read only by the
// history command; it never feeds back into a harvest.
//
// The driver is modernc.org/sqlite, a CGO-free SQLite implementation, so
// the database is a single file under the XDG data directory.
package database
