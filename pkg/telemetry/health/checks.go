package health

import (
	"context"
	"fmt"

	"querydict-hq/querydict/pkg/decision"
	"querydict-hq/querydict/pkg/ruleset"
)

// RuleSetSource exposes the active rule set, typically a *ruleset.Manager.
type RuleSetSource interface {
	Current() *ruleset.RuleSet
}

// RuleSetCheck fails until a rule set has been loaded.
func RuleSetCheck(src RuleSetSource) CheckFunc {
	return func(ctx context.Context) error {
		rs := src.Current()
		if rs == nil {
			return ruleset.ErrNotLoaded
		}
		if len(rs.Rules()) == 0 {
			return fmt.Errorf("rule set %s has no rules", rs.Version())
		}
		return nil
	}
}

// StoreCheck fails when the decision store cannot answer a count.
func StoreCheck(store decision.Store) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := store.Count(ctx, &decision.Query{}); err != nil {
			return fmt.Errorf("decision store: %w", err)
		}
		return nil
	}
}
