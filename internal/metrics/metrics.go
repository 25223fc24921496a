package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// namespace prefixes every metric name.
const namespace = "emailharvester"

// Recorder holds the counters of one process.
type Recorder struct {
	registry *prometheus.Registry

	queries        prometheus.Counter
	candidateURLs  prometheus.Counter
	pagesScanned   prometheus.Counter
	workerFailures prometheus.Counter
	observations   *prometheus.CounterVec
	uniqueEmails   prometheus.Gauge
	verifications  *prometheus.CounterVec
	rows           *prometheus.CounterVec
	pageDuration   prometheus.Histogram
}

// NewRecorder creates a Recorder with its counters registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Total search queries issued.",
		}),
		candidateURLs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_urls_total",
			Help:      "Total candidate URLs selected for scanning.",
		}),
		pagesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_scanned_total",
			Help:      "Total candidate pages processed.",
		}),
		workerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_failures_total",
			Help:      "Total page workers that failed unexpectedly.",
		}),
		observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_total",
			Help:      "Total email observations by discovery method.",
		}, []string{"note"}),
		uniqueEmails: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unique_emails",
			Help:      "Unique email addresses found by the current run.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total verification calls by result.",
		}, []string{"result"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Total output rows by quality label.",
		}, []string{"quality"}),
		pageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_duration_seconds",
			Help:      "Time spent processing one candidate page, contact pages included.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
	}

	r.registry.MustRegister(
		r.queries,
		r.candidateURLs,
		r.pagesScanned,
		r.workerFailures,
		r.observations,
		r.uniqueEmails,
		r.verifications,
		r.rows,
		r.pageDuration,
	)
	return r
}

// Registry returns the registry holding the counters.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// QueryIssued counts one search query.
func (r *Recorder) QueryIssued() {
	if r != nil {
		r.queries.Inc()
	}
}

// CandidateURLs counts the URLs selected for scanning.
func (r *Recorder) CandidateURLs(n int) {
	if r != nil {
		r.candidateURLs.Add(float64(n))
	}
}

// PageScanned counts one processed page and its duration.
func (r *Recorder) PageScanned(d time.Duration) {
	if r != nil {
		r.pagesScanned.Inc()
		r.pageDuration.Observe(d.Seconds())
	}
}

// WorkerFailed counts one failed page worker.
func (r *Recorder) WorkerFailed() {
	if r != nil {
		r.workerFailures.Inc()
	}
}

// Observation counts one observation under its note category.
func (r *Recorder) Observation(note string) {
	if r != nil {
		r.observations.WithLabelValues(note).Inc()
	}
}

// UniqueEmails sets the number of distinct addresses found.
func (r *Recorder) UniqueEmails(n int) {
	if r != nil {
		r.uniqueEmails.Set(float64(n))
	}
}

// Verification counts one verification call by its result.
func (r *Recorder) Verification(result string) {
	if r != nil {
		if result == "" {
			result = "unknown"
		}
		r.verifications.WithLabelValues(result).Inc()
	}
}

// Row counts one output row by quality label.
func (r *Recorder) Row(quality string) {
	if r != nil {
		r.rows.WithLabelValues(quality).Inc()
	}
}

// WriteTextfile writes the current values to path in the text exposition
// format, replacing the file atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// Handler returns an HTTP handler serving the counters.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve publishes /metrics on addr until ctx is cancelled.
// The listener is bound before Serve returns, so bind errors are reported
// synchronously.
func (r *Recorder) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}
