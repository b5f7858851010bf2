package decision

import (
	"context"
	"strings"
	"time"

	"querydict-hq/querydict/pkg/ruleset"
)

// Decision is the stored outcome of evaluating one record against a rule set.
// Decisions are immutable once recorded.
type Decision struct {
	// ID is the unique identifier of the decision (UUID).
	ID string `json:"id"`

	// EvaluationID links the decision to the rule set evaluation.
	EvaluationID string `json:"evaluation_id"`

	// RuleSetVersion identifies the rule set that produced the decision.
	RuleSetVersion string `json:"ruleset_version"`

	// RecordHash is the hex SHA-256 of the canonical JSON encoding of the
	// evaluated record.
	RecordHash string `json:"record_hash"`

	MatchedRules []string            `json:"matched_rules"`
	Errors       []ruleset.RuleError `json:"errors,omitempty"`
	Evaluated    int                 `json:"evaluated"`

	Duration  time.Duration `json:"duration_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

// Matched reports whether any rule matched.
func (d *Decision) Matched() bool {
	return len(d.MatchedRules) > 0
}

// DefaultQueryLimit is applied when Query.Limit is not positive.
const DefaultQueryLimit = 100

// Query filters decisions. Zero values mean no filter.
type Query struct {
	// StartTime and EndTime bound Timestamp, both inclusive.
	StartTime *time.Time
	EndTime   *time.Time

	RuleSetVersion string

	// MatchedRule selects decisions in which the named rule matched.
	MatchedRule string

	// Matched selects matched (true) or unmatched (false) decisions.
	Matched *bool

	// Limit caps the number of results. Default: DefaultQueryLimit.
	Limit  int
	Offset int

	// SortOrder is "asc" or "desc" by Timestamp. Default: "desc".
	SortOrder string
}

// Store persists decisions.
type Store interface {
	// Store persists a decision.
	Store(ctx context.Context, d *Decision) error

	// Query returns decisions matching the filters.
	Query(ctx context.Context, q *Query) ([]*Decision, error)

	// Count returns the number of decisions matching the filters,
	// ignoring pagination.
	Count(ctx context.Context, q *Query) (int64, error)

	// Delete removes decisions matching the filters and returns the
	// number removed.
	Delete(ctx context.Context, q *Query) (int64, error)

	// Close releases resources held by the store.
	Close() error
}

// Ascending reports whether results are ordered oldest first.
func (q *Query) Ascending() bool {
	return strings.EqualFold(q.SortOrder, "asc")
}

// EffectiveLimit returns Limit or DefaultQueryLimit.
func (q *Query) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultQueryLimit
	}
	return q.Limit
}

// Matches reports whether d satisfies the filters, ignoring pagination.
func (q *Query) Matches(d *Decision) bool {
	if q == nil {
		return true
	}
	if q.StartTime != nil && d.Timestamp.Before(*q.StartTime) {
		return false
	}
	if q.EndTime != nil && d.Timestamp.After(*q.EndTime) {
		return false
	}
	if q.RuleSetVersion != "" && d.RuleSetVersion != q.RuleSetVersion {
		return false
	}
	if q.Matched != nil && d.Matched() != *q.Matched {
		return false
	}
	if q.MatchedRule != "" {
		found := false
		for _, name := range d.MatchedRules {
			if name == q.MatchedRule {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
