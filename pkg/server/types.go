package server

import (
	"encoding/json"

	"querydict-hq/querydict/pkg/decision"
	"querydict-hq/querydict/pkg/query/engine"
	"querydict-hq/querydict/pkg/ruleset"
)

// QueryOptions override the server's engine defaults for one request.
// Omitted fields keep the configured value.
type QueryOptions struct {
	ShortCircuit        *bool   `json:"short_circuit,omitempty"`
	AmbiguousResolution *string `json:"ambiguous_resolution,omitempty"`
	AllowBareField      *bool   `json:"allow_bare_field,omitempty"`
	MaxDepth            *int    `json:"max_depth,omitempty"`
}

// MatchRequest is the body of POST /v1/match.
type MatchRequest struct {
	Query        string          `json:"query"`
	Record       json.RawMessage `json:"record"`
	DefaultField string          `json:"default_field,omitempty"`
	Options      *QueryOptions   `json:"options,omitempty"`

	// Explain requests the evaluation trace.
	Explain bool `json:"explain,omitempty"`
}

// MatchResponse is the body of a successful POST /v1/match.
type MatchResponse struct {
	Matched bool `json:"matched"`

	// Normalized is the canonical rendering of the parsed query.
	Normalized string        `json:"normalized"`
	Trace      *engine.Trace `json:"trace,omitempty"`
}

// ValidateRequest is the body of POST /v1/validate.
type ValidateRequest struct {
	Query   string        `json:"query"`
	Options *QueryOptions `json:"options,omitempty"`
}

// ValidateResponse lists every problem found in the query.
type ValidateResponse struct {
	Valid  bool        `json:"valid"`
	Errors []ErrorBody `json:"errors"`
}

// EvaluateRequest is the body of POST /v1/rules/evaluate.
type EvaluateRequest struct {
	Record json.RawMessage `json:"record"`
}

// EvaluateResponse is the rule set result plus the recorded decision, if any.
type EvaluateResponse struct {
	*ruleset.Result
	DecisionID string `json:"decision_id,omitempty"`
}

// DecisionsResponse is the body of GET /v1/decisions.
type DecisionsResponse struct {
	Decisions []*decision.Decision `json:"decisions"`
	Total     int64                `json:"total"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
}
