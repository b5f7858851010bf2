package metrics

import (
	"querydict-hq/querydict/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RuleMetrics tracks rule set evaluation and reloads.
//
// Metrics:
//   - querydict_rule_evaluations_total: Rule evaluations by rule and result
//   - querydict_ruleset_reloads_total: Rule set loads by result
//   - querydict_ruleset_rules: Number of rules in the active rule set
type RuleMetrics struct {
	evaluationsTotal *prometheus.CounterVec
	reloadsTotal     *prometheus.CounterVec
	rules            prometheus.Gauge
}

// NewRuleMetrics creates and registers rule metrics with the provided registry.
func NewRuleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RuleMetrics {
	rm := &RuleMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_evaluations_total",
				Help:      "Total number of rule evaluations",
			},
			[]string{"rule", "result"},
		),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "ruleset_reloads_total",
				Help:      "Total number of rule set loads and reloads",
			},
			[]string{"result"},
		),

		rules: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "ruleset_rules",
				Help:      "Number of rules in the active rule set",
			},
		),
	}

	registry.MustRegister(rm.evaluationsTotal, rm.reloadsTotal, rm.rules)

	return rm
}

// RecordEvaluation records one rule evaluation.
func (rm *RuleMetrics) RecordEvaluation(rule, result string) {
	rm.evaluationsTotal.WithLabelValues(rule, result).Inc()
}

// RecordReload records a reload attempt.
func (rm *RuleMetrics) RecordReload(success bool) {
	if success {
		rm.reloadsTotal.WithLabelValues("success").Inc()
		return
	}
	rm.reloadsTotal.WithLabelValues("error").Inc()
}

// SetRules sets the active rule count.
func (rm *RuleMetrics) SetRules(n int) {
	rm.rules.Set(float64(n))
}
