// Package metrics instruments tree builds and queries with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/psaab/conftree/pkg/conftree"
)

// Query results as recorded in conftree_queries_total.
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Recorder counts builds, diagnostics and queries. It implements
// conftree.Observer.
type Recorder struct {
	linesParsed   *prometheus.CounterVec
	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	diagnostics   *prometheus.CounterVec
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
}

var _ conftree.Observer = (*Recorder)(nil)

// NewRecorder creates the metrics and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		linesParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conftree_lines_parsed_total",
			Help: "Total configuration lines turned into nodes.",
		}, []string{"mode"}),
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conftree_builds_total",
			Help: "Total documents built.",
		}, []string{"mode"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "conftree_build_duration_seconds",
			Help:    "Time spent building a document.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conftree_diagnostics_total",
			Help: "Structural anomalies found while building.",
		}, []string{"kind"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "conftree_queries_total",
			Help: "Queries run against the loaded document.",
		}, []string{"command", "result"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conftree_query_duration_seconds",
			Help:    "Time spent answering a query.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"command"}),
	}
	reg.MustRegister(r.linesParsed, r.builds, r.buildDuration, r.diagnostics, r.queries, r.queryDuration)
	return r
}

// ObserveBuild implements conftree.Observer.
func (r *Recorder) ObserveBuild(mode conftree.Mode, lines int, elapsed time.Duration) {
	r.linesParsed.WithLabelValues(mode.String()).Add(float64(lines))
	r.builds.WithLabelValues(mode.String()).Inc()
	r.buildDuration.Observe(elapsed.Seconds())
}

// ObserveDiagnostic implements conftree.Observer.
func (r *Recorder) ObserveDiagnostic(kind conftree.DiagnosticKind) {
	r.diagnostics.WithLabelValues(kind.String()).Inc()
}

// ObserveQuery records one query. err takes precedence over found.
func (r *Recorder) ObserveQuery(command string, found bool, err error, elapsed time.Duration) {
	r.queries.WithLabelValues(command, Result(found, err)).Inc()
	r.queryDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// Result maps a query outcome to its label value.
func Result(found bool, err error) string {
	switch {
	case err != nil:
		return ResultError
	case found:
		return ResultFound
	default:
		return ResultNotFound
	}
}
