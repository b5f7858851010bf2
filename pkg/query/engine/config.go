package engine

import (
	"log/slog"
	"time"

	"querydict-hq/querydict/pkg/query/ast"
	"querydict-hq/querydict/pkg/query/resolver"
	"querydict-hq/querydict/pkg/query/validator"
)

// Resolution selects how implicit juxtaposition ("a:x b:y") is interpreted.
type Resolution = validator.Resolution

const (
	// ResolveAnd treats "a:x b:y" as "a:x AND b:y". This is the default.
	ResolveAnd = validator.ResolveAnd

	// ResolveOr treats "a:x b:y" as "a:x OR b:y".
	ResolveOr = validator.ResolveOr

	// ResolveReject fails construction when a query relies on juxtaposition.
	ResolveReject = validator.ResolveReject
)

// DefaultMaxDepth is the default maximum expression tree depth.
const DefaultMaxDepth = validator.DefaultMaxDepth

// ParseAmbiguousResolution parses "AND", "OR" or "Reject" (alias "Exception"),
// case-insensitively. Unknown values produce an argument error with a suggestion.
func ParseAmbiguousResolution(s string) (Resolution, error) {
	return validator.ParseResolution(s)
}

// Parser turns a query string into an expression tree.
// *parser.Parser is the default implementation.
type Parser interface {
	Parse(query string) (*ast.Node, error)
}

// Observer receives build and match outcomes, typically to feed metrics.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveBuild(err error)
	ObserveMatch(matched bool, err error, duration time.Duration)
}

// Config contains configuration for building an Engine.
type Config struct {
	// ShortCircuit stops evaluating And/Or operands once the result is known.
	// Default: true.
	ShortCircuit bool

	// AmbiguousResolution controls implicit juxtaposition.
	// Default: ResolveAnd.
	AmbiguousResolution Resolution

	// AllowBareField permits terms without a field qualifier. Matching such a
	// query requires WithDefaultField.
	// Default: false.
	AllowBareField bool

	// MaxDepth is the maximum accepted tree depth, the root being depth 1.
	// Default: 10.
	MaxDepth int

	// Parser parses the query string.
	// Default: parser.NewParser().
	Parser Parser

	// Resolver looks up field paths in records passed to Match and Explain.
	// Default: resolver.Default.
	Resolver resolver.Resolver

	// Logger receives debug output for builds and evaluations.
	// Default: slog.Default().
	Logger *slog.Logger

	// Observer is notified of every build and match. Optional.
	Observer Observer
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		ShortCircuit:        true,
		AmbiguousResolution: ResolveAnd,
		AllowBareField:      false,
		MaxDepth:            DefaultMaxDepth,
	}
}

// Validate validates the configuration. Errors are argument errors.
func (c *Config) Validate() error {
	return c.validatorOptions().Validate()
}

func (c *Config) validatorOptions() validator.Options {
	return validator.Options{
		Resolution:     c.AmbiguousResolution,
		AllowBareField: c.AllowBareField,
		MaxDepth:       c.MaxDepth,
	}
}

// WithShortCircuit sets short-circuit evaluation.
func (c *Config) WithShortCircuit(enabled bool) *Config {
	c.ShortCircuit = enabled
	return c
}

// WithAmbiguousResolution sets the resolution for implicit juxtaposition.
func (c *Config) WithAmbiguousResolution(res Resolution) *Config {
	c.AmbiguousResolution = res
	return c
}

// WithAllowBareField permits or forbids unqualified terms.
func (c *Config) WithAllowBareField(allow bool) *Config {
	c.AllowBareField = allow
	return c
}

// WithMaxDepth sets the maximum tree depth.
func (c *Config) WithMaxDepth(depth int) *Config {
	c.MaxDepth = depth
	return c
}

// WithParser sets the query parser.
func (c *Config) WithParser(p Parser) *Config {
	c.Parser = p
	return c
}

// WithResolver sets the path resolver.
func (c *Config) WithResolver(r resolver.Resolver) *Config {
	c.Resolver = r
	return c
}

// WithLogger sets the logger.
func (c *Config) WithLogger(logger *slog.Logger) *Config {
	c.Logger = logger
	return c
}

// WithObserver sets the observer.
func (c *Config) WithObserver(o Observer) *Config {
	c.Observer = o
	return c
}
