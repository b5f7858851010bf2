package ruleset

import (
	"time"

	"querydict-hq/querydict/pkg/query/engine"
)

// FormatVersion is the only rule file format version understood by the loader.
const FormatVersion = "1"

// Mode controls which matches are reported by an evaluation.
type Mode string

const (
	// ModeAll evaluates every enabled rule and reports all matches.
	ModeAll Mode = "all"

	// ModeFirst stops at the first matching rule.
	ModeFirst Mode = "first"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeAll || m == ModeFirst
}

// File is the YAML representation of a rule file.
type File struct {
	Version  string       `yaml:"version"`
	Defaults RuleSettings `yaml:"defaults"`
	Mode     Mode         `yaml:"mode"`
	Rules    []RuleSpec   `yaml:"rules"`
}

// RuleSettings holds engine settings. Nil fields inherit from the enclosing
// level: rule from file defaults, file defaults from the loader's defaults.
type RuleSettings struct {
	ShortCircuit        *bool   `yaml:"short_circuit,omitempty"`
	AmbiguousResolution *string `yaml:"ambiguous_resolution,omitempty"`
	AllowBareField      *bool   `yaml:"allow_bare_field,omitempty"`
	MaxDepth            *int    `yaml:"max_depth,omitempty"`
	DefaultField        *string `yaml:"default_field,omitempty"`
}

// merge returns s with nil fields filled from parent.
func (s RuleSettings) merge(parent RuleSettings) RuleSettings {
	if s.ShortCircuit == nil {
		s.ShortCircuit = parent.ShortCircuit
	}
	if s.AmbiguousResolution == nil {
		s.AmbiguousResolution = parent.AmbiguousResolution
	}
	if s.AllowBareField == nil {
		s.AllowBareField = parent.AllowBareField
	}
	if s.MaxDepth == nil {
		s.MaxDepth = parent.MaxDepth
	}
	if s.DefaultField == nil {
		s.DefaultField = parent.DefaultField
	}
	return s
}

// RuleSpec is a single rule as written in a rule file.
type RuleSpec struct {
	Name         string   `yaml:"name"`
	Description  string   `yaml:"description,omitempty"`
	Query        string   `yaml:"query"`
	Tags         []string `yaml:"tags,omitempty"`
	Enabled      *bool    `yaml:"enabled,omitempty"`
	RuleSettings `yaml:",inline"`
}

// IsEnabled reports whether the rule takes part in evaluations. Rules are
// enabled unless they say otherwise.
func (r *RuleSpec) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Rule is a compiled rule.
type Rule struct {
	Name         string
	Description  string
	Query        string
	Tags         []string
	Enabled      bool
	DefaultField string
	Source       string

	engine *engine.Engine
}

// Engine returns the compiled query.
func (r *Rule) Engine() *engine.Engine {
	return r.engine
}

// Result is the outcome of evaluating a rule set against one record.
type Result struct {
	// EvaluationID uniquely identifies this evaluation.
	EvaluationID string `json:"evaluation_id"`

	// RuleSetVersion identifies the rule set that produced the result.
	RuleSetVersion string `json:"ruleset_version"`

	// Matched lists the names of matching rules in file order.
	Matched []string `json:"matched"`

	// Errors lists rules that failed to evaluate. They count as not matched.
	Errors []RuleError `json:"errors,omitempty"`

	// Evaluated is the number of rules evaluated.
	Evaluated int `json:"evaluated"`

	Duration  time.Duration `json:"duration_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

// HasMatch reports whether any rule matched.
func (r *Result) HasMatch() bool {
	return len(r.Matched) > 0
}

// RuleError records a rule that failed during an evaluation.
type RuleError struct {
	Rule    string `json:"rule"`
	Type    string `json:"type"`
	Message string `json:"message"`

	Err error `json:"-"`
}
