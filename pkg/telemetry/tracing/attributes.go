package tracing

import (
	"querydict-hq/querydict/pkg/ruleset"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for querydict spans.
const (
	AttrQuery          = "querydict.query"
	AttrQueryLength    = "querydict.query.length"
	AttrMatched        = "querydict.matched"
	AttrEvaluationID   = "querydict.evaluation_id"
	AttrRuleSetVersion = "querydict.ruleset.version"
	AttrRulesEvaluated = "querydict.rules.evaluated"
	AttrRulesMatched   = "querydict.rules.matched"
	AttrRuleErrors     = "querydict.rules.errors"
	AttrDecisionID     = "querydict.decision_id"
)

// maxQueryAttr truncates queries recorded on spans.
const maxQueryAttr = 256

// SetQueryAttributes records the query text, truncated, and its length.
func SetQueryAttributes(span trace.Span, query string) {
	recorded := query
	if len(recorded) > maxQueryAttr {
		recorded = recorded[:maxQueryAttr]
	}
	span.SetAttributes(
		attribute.String(AttrQuery, recorded),
		attribute.Int(AttrQueryLength, len(query)),
	)
}

// SetMatchAttributes records the outcome of a single match.
func SetMatchAttributes(span trace.Span, matched bool) {
	span.SetAttributes(attribute.Bool(AttrMatched, matched))
}

// SetResultAttributes records a rule set evaluation result.
func SetResultAttributes(span trace.Span, result *ruleset.Result) {
	if result == nil {
		return
	}
	span.SetAttributes(
		attribute.String(AttrEvaluationID, result.EvaluationID),
		attribute.String(AttrRuleSetVersion, result.RuleSetVersion),
		attribute.Int(AttrRulesEvaluated, result.Evaluated),
		attribute.StringSlice(AttrRulesMatched, result.Matched),
		attribute.Int(AttrRuleErrors, len(result.Errors)),
		attribute.Bool(AttrMatched, result.HasMatch()),
	)
}
