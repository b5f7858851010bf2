package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"querydict-hq/querydict/pkg/query/ast"
	qerrors "querydict-hq/querydict/pkg/query/errors"
	"querydict-hq/querydict/pkg/query/parser"
	"querydict-hq/querydict/pkg/query/resolver"
	"querydict-hq/querydict/pkg/query/validator"
)

const (
	msgNeedQuery        = "Need a valid query"
	msgParseFailed      = "Could not parse the query, error: "
	msgNeedDefaultField = "Need a default_field to use for matching unqualified field"
)

// Engine is a compiled query. It is immutable after New returns and safe for
// concurrent use by multiple goroutines.
type Engine struct {
	query string
	tree  *ast.Node

	shortCircuit      bool
	resolution        Resolution
	allowBareField    bool
	maxDepth          int
	containsBareField bool

	resolver resolver.Resolver
	json     resolver.Resolver
	logger   *slog.Logger
	debug    bool
	observer Observer
}

// New parses, normalizes and validates query. A nil cfg uses DefaultConfig().
//
// Errors are *errors.Error values: argument errors for a blank query or an
// invalid configuration, syntax errors for unparsable queries, structural
// errors for queries outside the accepted language.
func New(query string, cfg *Config) (eng *Engine, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Observer != nil {
		defer func() { cfg.Observer.ObserveBuild(err) }()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "query.engine")

	if strings.TrimSpace(query) == "" {
		return nil, qerrors.Argument(msgNeedQuery)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := cfg.Parser
	if p == nil {
		p = parser.NewParser()
	}

	tree, err := p.Parse(query)
	if err != nil {
		return nil, wrapParseError(err, query)
	}

	result, err := validator.NewValidator(cfg.validatorOptions()).Validate(tree)
	if err != nil {
		return nil, qerrors.AddContext(err, query)
	}

	res := cfg.Resolver
	if res == nil {
		res = resolver.Default
	}

	eng = &Engine{
		query:             query,
		tree:              result.Tree,
		shortCircuit:      cfg.ShortCircuit,
		resolution:        cfg.AmbiguousResolution,
		allowBareField:    cfg.AllowBareField,
		maxDepth:          cfg.MaxDepth,
		containsBareField: result.ContainsBareField,
		resolver:          res,
		json:              resolver.NewJSONResolver(),
		logger:            logger,
		debug:             logger.Enabled(context.Background(), slog.LevelDebug),
		observer:          cfg.Observer,
	}

	logger.Debug("query built",
		"query", query,
		"normalized", eng.tree.String(),
		"depth", ast.Depth(eng.tree),
		"contains_bare_field", eng.containsBareField,
	)

	return eng, nil
}

// wrapParseError turns a parser failure into a syntax error carrying the
// parser's diagnostic.
func wrapParseError(err error, query string) error {
	var qe *qerrors.Error
	if errors.As(err, &qe) {
		wrapped := &qerrors.Error{
			Type:       qerrors.ErrorTypeSyntax,
			Message:    msgParseFailed + qe.Message,
			Position:   qe.Position,
			Suggestion: qe.Suggestion,
			Cause:      err,
		}
		return qerrors.WithContext(wrapped, query)
	}
	return qerrors.New(qerrors.ErrorTypeSyntax, ast.Position{}, "%s%v", msgParseFailed, err).WithCause(err)
}

// MustNew is like New but panics if the query cannot be built.
func MustNew(query string, cfg *Config) *Engine {
	eng, err := New(query, cfg)
	if err != nil {
		panic(`engine: New(` + query + `): ` + err.Error())
	}
	return eng
}

// Query returns the original query string.
func (e *Engine) Query() string {
	return e.query
}

// Tree returns a copy of the normalized expression tree.
func (e *Engine) Tree() *ast.Node {
	return e.tree.Clone()
}

// String renders the normalized query.
func (e *Engine) String() string {
	return e.tree.String()
}

// Fields returns the field paths referenced by the query.
func (e *Engine) Fields() []string {
	return ast.Fields(e.tree)
}

// ContainsBareField reports whether the query has unqualified terms.
func (e *Engine) ContainsBareField() bool {
	return e.containsBareField
}

// ShortCircuit reports whether And/Or evaluation stops early.
func (e *Engine) ShortCircuit() bool {
	return e.shortCircuit
}

// AmbiguousResolution returns the resolution used when the query was built.
func (e *Engine) AmbiguousResolution() Resolution {
	return e.resolution
}

// AllowBareField reports whether unqualified terms were permitted.
func (e *Engine) AllowBareField() bool {
	return e.allowBareField
}

// MaxDepth returns the depth limit the query was validated against.
func (e *Engine) MaxDepth() int {
	return e.maxDepth
}

// MatchOption configures a single Match, MatchJSON or Explain call.
type MatchOption func(*matchOptions)

type matchOptions struct {
	defaultField string
	resolver     resolver.Resolver
}

// WithDefaultField names the field unqualified terms are matched against.
// An empty name is the same as not supplying one.
func WithDefaultField(name string) MatchOption {
	return func(o *matchOptions) {
		o.defaultField = name
	}
}

// WithResolver overrides the engine's resolver for one call.
func WithResolver(r resolver.Resolver) MatchOption {
	return func(o *matchOptions) {
		o.resolver = r
	}
}

// Match reports whether record matches the query. Fields missing from the
// record never match and are not errors.
func (e *Engine) Match(record interface{}, opts ...MatchOption) (bool, error) {
	return e.observe(func() (bool, error) {
		return e.run(record, e.resolver, nil, opts)
	})
}

// MatchJSON reports whether the raw JSON document data matches the query.
// The document is read in place with gjson rather than decoded.
func (e *Engine) MatchJSON(data []byte, opts ...MatchOption) (bool, error) {
	return e.observe(func() (bool, error) {
		if !gjson.ValidBytes(data) {
			return false, qerrors.Argument("Record is not valid JSON")
		}
		return e.run(data, e.json, nil, opts)
	})
}

// Explain evaluates the query like Match and returns the evaluation trace.
// On error the trace covers the evaluation up to the failure.
func (e *Engine) Explain(record interface{}, opts ...MatchOption) (*Trace, error) {
	trace := newTrace(e.tree)
	_, err := e.run(record, e.resolver, trace, opts)
	return trace, err
}

// ExplainJSON is Explain for a raw JSON document.
func (e *Engine) ExplainJSON(data []byte, opts ...MatchOption) (*Trace, error) {
	if !gjson.ValidBytes(data) {
		return nil, qerrors.Argument("Record is not valid JSON")
	}
	trace := newTrace(e.tree)
	_, err := e.run(data, e.json, trace, opts)
	return trace, err
}

func (e *Engine) observe(fn func() (bool, error)) (bool, error) {
	if e.observer == nil {
		return fn()
	}
	start := time.Now()
	matched, err := fn()
	e.observer.ObserveMatch(matched, err, time.Since(start))
	return matched, err
}

func (e *Engine) run(record interface{}, res resolver.Resolver, trace *Trace, opts []MatchOption) (bool, error) {
	o := matchOptions{resolver: res}
	for _, opt := range opts {
		opt(&o)
	}

	if e.containsBareField && o.defaultField == "" {
		return false, qerrors.New(qerrors.ErrorTypeMatchConfig, ast.Position{}, msgNeedDefaultField)
	}

	ev := &evaluator{
		shortCircuit: e.shortCircuit,
		resolver:     o.resolver,
		record:       record,
		defaultField: o.defaultField,
		logger:       e.logger,
		debug:        e.debug,
	}

	matched, err := ev.eval(e.tree, trace)
	if err != nil {
		return false, err
	}
	return matched, nil
}
