package metrics

import (
	"sync"
	"time"

	"querydict-hq/querydict/pkg/config"
	qerrors "querydict-hq/querydict/pkg/query/errors"

	"github.com/prometheus/client_golang/prometheus"
)

// maxRuleCardinality bounds the number of distinct rule label values.
const maxRuleCardinality = 1000

// otherRule replaces rule names once the cardinality limit is reached.
const otherRule = "other"

// Collector owns every Prometheus metric exported by querydict.
//
// It implements engine.Observer, ruleset.Observer and retention.Observer so it
// can be handed directly to those components. All Record and Observe methods
// are no-ops when metrics are disabled.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	queryMetrics    *QueryMetrics
	ruleMetrics     *RuleMetrics
	decisionMetrics *DecisionMetrics
	requestMetrics  *RequestMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registering its metrics with registry.
// If registry is nil, a new registry is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	eng, err := engine.New(query, engine.DefaultConfig().WithObserver(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.MatchDurationBuckets) == 0 {
		cfg.MatchDurationBuckets = prometheus.ExponentialBuckets(0.000001, 2, 15) // 1µs to 16ms
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(maxRuleCardinality),
	}

	c.queryMetrics = NewQueryMetrics(cfg, registry)
	c.ruleMetrics = NewRuleMetrics(cfg, registry)
	c.decisionMetrics = NewDecisionMetrics(cfg, registry)
	c.requestMetrics = NewRequestMetrics(cfg, registry)

	return c
}

// ObserveBuild records the outcome of compiling a query.
func (c *Collector) ObserveBuild(err error) {
	if !c.config.Enabled {
		return
	}
	c.queryMetrics.RecordBuild(errorType(err))
}

// ObserveMatch records the outcome and duration of a single match.
func (c *Collector) ObserveMatch(matched bool, err error, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.queryMetrics.RecordMatch(matchResult(matched, err), duration)
}

// ObserveRule records the outcome of one rule within a rule set evaluation.
// Rule names beyond the cardinality limit are aggregated under "other".
func (c *Collector) ObserveRule(rule string, matched bool, err error) {
	if !c.config.Enabled {
		return
	}
	if !c.cardinalityLimiter.Allow(rule) {
		rule = otherRule
	}
	c.ruleMetrics.RecordEvaluation(rule, matchResult(matched, err))
}

// ObserveReload records a rule set load or reload.
func (c *Collector) ObserveReload(err error) {
	if !c.config.Enabled {
		return
	}
	c.ruleMetrics.RecordReload(err == nil)
}

// SetRuleCount sets the number of rules in the active rule set.
func (c *Collector) SetRuleCount(n int) {
	if !c.config.Enabled {
		return
	}
	c.ruleMetrics.SetRules(n)
}

// ObservePruned records decisions removed by retention.
func (c *Collector) ObservePruned(count int64) {
	if !c.config.Enabled {
		return
	}
	c.decisionMetrics.RecordPruned(count)
}

// RecordDecision records an attempt to persist a decision.
func (c *Collector) RecordDecision(err error) {
	if !c.config.Enabled {
		return
	}
	c.decisionMetrics.RecordDecision(err == nil)
}

// RecordRequest records a completed HTTP request.
func (c *Collector) RecordRequest(route, method string, status int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordRequest(route, method, status, duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func matchResult(matched bool, err error) string {
	switch {
	case err != nil:
		return "error"
	case matched:
		return "matched"
	default:
		return "unmatched"
	}
}

func errorType(err error) string {
	if err == nil {
		return ""
	}
	if t := qerrors.TypeOf(err); t != "" {
		return string(t)
	}
	return "unknown"
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting at most maxCardinality values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label. Values seen before are
// always allowed; new values are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
