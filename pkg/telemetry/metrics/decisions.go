package metrics

import (
	"querydict-hq/querydict/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// DecisionMetrics tracks the decision log.
//
// Metrics:
//   - querydict_decisions_recorded_total: Decisions handed to the recorder by result
//   - querydict_decisions_pruned_total: Decisions removed by retention
type DecisionMetrics struct {
	recordedTotal *prometheus.CounterVec
	prunedTotal   prometheus.Counter
}

// NewDecisionMetrics creates and registers decision metrics with the provided registry.
func NewDecisionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DecisionMetrics {
	dm := &DecisionMetrics{
		recordedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "decisions_recorded_total",
				Help:      "Total number of decisions submitted for recording",
			},
			[]string{"result"},
		),

		prunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "decisions_pruned_total",
				Help:      "Total number of decisions removed by retention",
			},
		),
	}

	registry.MustRegister(dm.recordedTotal, dm.prunedTotal)

	return dm
}

// RecordDecision records a recording attempt.
func (dm *DecisionMetrics) RecordDecision(success bool) {
	if success {
		dm.recordedTotal.WithLabelValues("success").Inc()
		return
	}
	dm.recordedTotal.WithLabelValues("error").Inc()
}

// RecordPruned adds count pruned decisions.
func (dm *DecisionMetrics) RecordPruned(count int64) {
	if count > 0 {
		dm.prunedTotal.Add(float64(count))
	}
}
