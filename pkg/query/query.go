// Package query is the entry point for compiling and matching querydict
// queries. It wraps the engine package for the common cases:
//
//	q := query.MustCompile(`country:England AND data.weather:"Rainy"`)
//	ok, err := q.Match(record)
//
// Use engine.New directly for custom parsers, resolvers or observers.
package query

import (
	"querydict-hq/querydict/pkg/query/engine"
)

// Compile builds an engine for q. A nil cfg uses engine.DefaultConfig().
func Compile(q string, cfg *engine.Config) (*engine.Engine, error) {
	return engine.New(q, cfg)
}

// MustCompile is like Compile with the default configuration but panics on error.
func MustCompile(q string) *engine.Engine {
	return engine.MustNew(q, nil)
}

// Match compiles q with the default configuration and matches it against record.
func Match(q string, record interface{}, opts ...engine.MatchOption) (bool, error) {
	eng, err := engine.New(q, nil)
	if err != nil {
		return false, err
	}
	return eng.Match(record, opts...)
}

// Lint reports every violation in q. See engine.Lint.
func Lint(q string, cfg *engine.Config) error {
	return engine.Lint(q, cfg)
}
