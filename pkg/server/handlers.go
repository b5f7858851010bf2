package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"

	"querydict-hq/querydict/pkg/decision"
	"querydict-hq/querydict/pkg/query/engine"
	"querydict-hq/querydict/pkg/telemetry/logging"
	"querydict-hq/querydict/pkg/telemetry/tracing"
)

// maxDecisionsLimit caps the page size of GET /v1/decisions.
const maxDecisionsLimit = 1000

// handleMatch serves POST /v1/match.
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Record) == 0 {
		s.writeError(w, r, badRequest("record is required", nil))
		return
	}

	cfg, err := s.engineConfigFor(req.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, span := s.deps.Tracer.Start(r.Context(), "query.match")
	defer span.End()
	tracing.SetQueryAttributes(span, req.Query)

	eng, err := engine.New(req.Query, cfg)
	if err != nil {
		tracing.SetStatus(span, err)
		s.writeError(w, r.WithContext(ctx), err)
		return
	}

	defaultField := req.DefaultField
	if defaultField == "" {
		defaultField = s.config.Engine.DefaultField
	}
	opt := engine.WithDefaultField(defaultField)

	resp := MatchResponse{Normalized: eng.String()}
	if req.Explain {
		trace, err := eng.ExplainJSON(req.Record, opt)
		if err != nil {
			tracing.SetStatus(span, err)
			s.writeError(w, r.WithContext(ctx), err)
			return
		}
		resp.Matched = trace.Matched
		resp.Trace = trace
	} else {
		matched, err := eng.MatchJSON(req.Record, opt)
		if err != nil {
			tracing.SetStatus(span, err)
			s.writeError(w, r.WithContext(ctx), err)
			return
		}
		resp.Matched = matched
	}

	tracing.SetMatchAttributes(span, resp.Matched)
	writeJSON(w, http.StatusOK, resp)
}

// handleValidate serves POST /v1/validate. Query errors are reported in the
// body with status 200; argument errors are rejected with 400.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	cfg, err := s.engineConfigFor(req.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	err = engine.Lint(req.Query, cfg)
	if err == nil {
		writeJSON(w, http.StatusOK, ValidateResponse{Valid: true, Errors: []ErrorBody{}})
		return
	}
	if code, _ := classify(err); code != http.StatusUnprocessableEntity {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: false, Errors: errorBodies(err)})
}

// handleEvaluate serves POST /v1/rules/evaluate and records the decision
// when a recorder is configured.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Rules == nil {
		s.writeError(w, r, errUnavailable)
		return
	}

	var req EvaluateRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Record) == 0 {
		s.writeError(w, r, badRequest("record is required", nil))
		return
	}
	if !gjson.ValidBytes(req.Record) {
		s.writeError(w, r, badRequest("record is not valid JSON", nil))
		return
	}

	ctx, span := s.deps.Tracer.Start(r.Context(), "ruleset.evaluate")
	defer span.End()

	result, err := s.deps.Rules.EvaluateJSON(ctx, req.Record)
	if err != nil {
		tracing.SetStatus(span, err)
		s.writeError(w, r.WithContext(ctx), err)
		return
	}
	tracing.SetResultAttributes(span, result)
	ctx = logging.WithEvaluationID(ctx, result.EvaluationID)

	resp := EvaluateResponse{Result: result}
	if s.deps.Recorder != nil {
		d, err := s.deps.Recorder.Record(ctx, result, []byte(req.Record))
		if s.deps.Metrics != nil {
			s.deps.Metrics.RecordDecision(err)
		}
		if err != nil {
			// The evaluation stands even if it could not be recorded.
			s.logger.WarnContext(ctx, "failed to record decision", "error", err)
		} else if d != nil {
			resp.DecisionID = d.ID
			span.SetAttributes(attribute.String(tracing.AttrDecisionID, d.ID))
		}
	}

	s.logger.DebugContext(ctx, "rule set evaluated",
		"matched", result.Matched,
		"evaluated", result.Evaluated,
		"errors", len(result.Errors),
	)
	writeJSON(w, http.StatusOK, resp)
}

// handleDecisions serves GET /v1/decisions.
//
// Query parameters: since, until (RFC 3339), ruleset_version, rule,
// matched (bool), limit, offset and sort ("asc" or "desc").
func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Decisions == nil {
		s.writeError(w, r, errUnavailable)
		return
	}

	q, err := parseDecisionQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	decisions, err := s.deps.Decisions.Query(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	total, err := s.deps.Decisions.Count(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if decisions == nil {
		decisions = []*decision.Decision{}
	}

	writeJSON(w, http.StatusOK, DecisionsResponse{
		Decisions: decisions,
		Total:     total,
		Limit:     q.EffectiveLimit(),
		Offset:    q.Offset,
	})
}

func parseDecisionQuery(values url.Values) (*decision.Query, error) {
	q := &decision.Query{
		RuleSetVersion: values.Get("ruleset_version"),
		MatchedRule:    values.Get("rule"),
	}

	if v := values.Get("since"); v != "" {
		t, err := cast.ToTimeE(v)
		if err != nil {
			return nil, badRequest("invalid since", err)
		}
		q.StartTime = &t
	}
	if v := values.Get("until"); v != "" {
		t, err := cast.ToTimeE(v)
		if err != nil {
			return nil, badRequest("invalid until", err)
		}
		q.EndTime = &t
	}
	if v := values.Get("matched"); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, badRequest("invalid matched", err)
		}
		q.Matched = &b
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, badRequest("invalid limit", err)
		}
		q.Limit = min(n, maxDecisionsLimit)
	}
	if v := values.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, badRequest("invalid offset", err)
		}
		q.Offset = n
	}
	switch sort := strings.ToLower(values.Get("sort")); sort {
	case "", "desc", "asc":
		q.SortOrder = sort
	default:
		return nil, badRequest("sort must be asc or desc", nil)
	}

	if q.StartTime != nil && q.EndTime != nil && q.EndTime.Before(*q.StartTime) {
		return nil, badRequest("until is before since", nil)
	}
	return q, nil
}

// engineConfigFor applies per-request options on top of the server's engine
// configuration.
func (s *Server) engineConfigFor(opts *QueryOptions) (*engine.Config, error) {
	cfg := *s.engineConfig
	if opts == nil {
		return &cfg, nil
	}
	if opts.ShortCircuit != nil {
		cfg.ShortCircuit = *opts.ShortCircuit
	}
	if opts.AmbiguousResolution != nil {
		res, err := engine.ParseAmbiguousResolution(*opts.AmbiguousResolution)
		if err != nil {
			return nil, err
		}
		cfg.AmbiguousResolution = res
	}
	if opts.AllowBareField != nil {
		cfg.AllowBareField = *opts.AllowBareField
	}
	if opts.MaxDepth != nil {
		cfg.MaxDepth = *opts.MaxDepth
	}
	return &cfg, nil
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return badRequest("request body is required", nil)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return badRequest("invalid request body", err)
	}
	return nil
}
