package metrics

import (
	"time"

	"querydict-hq/querydict/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// QueryMetrics tracks query compilation and matching.
//
// Metrics:
//   - querydict_query_builds_total: Query compilations by result
//   - querydict_query_build_errors_total: Failed compilations by error type
//   - querydict_matches_total: Matches by result (matched, unmatched, error)
//   - querydict_match_duration_seconds: Match duration histogram
type QueryMetrics struct {
	buildsTotal      *prometheus.CounterVec
	buildErrorsTotal *prometheus.CounterVec
	matchesTotal     *prometheus.CounterVec
	matchDuration    prometheus.Histogram
}

// NewQueryMetrics creates and registers query metrics with the provided registry.
func NewQueryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *QueryMetrics {
	qm := &QueryMetrics{
		buildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "query_builds_total",
				Help:      "Total number of query compilations",
			},
			[]string{"result"},
		),

		buildErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "query_build_errors_total",
				Help:      "Total number of failed query compilations by error type",
			},
			[]string{"type"},
		),

		matchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "matches_total",
				Help:      "Total number of record matches",
			},
			[]string{"result"},
		),

		matchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "match_duration_seconds",
				Help:      "Duration of a single record match in seconds",
				Buckets:   cfg.MatchDurationBuckets,
			},
		),
	}

	registry.MustRegister(
		qm.buildsTotal,
		qm.buildErrorsTotal,
		qm.matchesTotal,
		qm.matchDuration,
	)

	return qm
}

// RecordBuild records a compilation. An empty errType means success.
func (qm *QueryMetrics) RecordBuild(errType string) {
	if errType == "" {
		qm.buildsTotal.WithLabelValues("success").Inc()
		return
	}
	qm.buildsTotal.WithLabelValues("error").Inc()
	qm.buildErrorsTotal.WithLabelValues(errType).Inc()
}

// RecordMatch records a match result and its duration.
func (qm *QueryMetrics) RecordMatch(result string, duration time.Duration) {
	qm.matchesTotal.WithLabelValues(result).Inc()
	qm.matchDuration.Observe(duration.Seconds())
}
