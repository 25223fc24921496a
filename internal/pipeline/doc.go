// Package pipeline runs a harvest as a sequence of steps.
//
// A harvest has four steps, each reading and extending one *model.Harvest:
//
//   - collect: candidate URLs from seeds or from search queries
//   - scan: concurrent page processing, merged into the per-email map
//   - verify: the capped, opt-in verification pass
//   - assemble: MX checks, quality labels and the sorted output rows
//
// Steps depend only on small interfaces (search.Backend, crawler.Fetcher,
// Verifier, MXChecker), so each one can be tested with stubs. Page
// processing fans out through a BatchProcessor built on errgroup; results
// are merged by the coordinating goroutine alone.
package pipeline
