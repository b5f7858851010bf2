package engine

import (
	"strings"

	qerrors "querydict-hq/querydict/pkg/query/errors"
	"querydict-hq/querydict/pkg/query/parser"
	"querydict-hq/querydict/pkg/query/validator"
)

// Lint checks query the way New does but reports every structural violation
// instead of stopping at the first. It returns nil for a valid query, a single
// *errors.Error for argument and syntax errors, and an *errors.ErrorList
// otherwise. Every error carries caret context for query.
func Lint(query string, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if strings.TrimSpace(query) == "" {
		return qerrors.Argument(msgNeedQuery)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	p := cfg.Parser
	if p == nil {
		p = parser.NewParser()
	}
	tree, err := p.Parse(query)
	if err != nil {
		return wrapParseError(err, query)
	}

	if _, err := validator.NewValidator(cfg.validatorOptions()).ValidateAll(tree); err != nil {
		return qerrors.AddContext(err, query)
	}
	return nil
}
