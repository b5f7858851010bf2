package config

import (
	"log/slog"

	"querydict-hq/querydict/pkg/query/engine"
	"querydict-hq/querydict/pkg/query/parser"
	"querydict-hq/querydict/pkg/ruleset"
)

// Engine builds the engine configuration described by the engine section.
// The parser enforces MaxQueryLength.
func (c *EngineConfig) Engine(logger *slog.Logger, observer engine.Observer) (*engine.Config, error) {
	res, err := engine.ParseAmbiguousResolution(c.AmbiguousResolution)
	if err != nil {
		return nil, err
	}

	cfg := engine.DefaultConfig().
		WithShortCircuit(c.ShortCircuit).
		WithAmbiguousResolution(res).
		WithAllowBareField(c.AllowBareField).
		WithMaxDepth(c.MaxDepth).
		WithLogger(logger).
		WithObserver(observer)
	if c.MaxQueryLength > 0 {
		cfg.WithParser(parser.NewParser().WithMaxLength(c.MaxQueryLength))
	}
	return cfg, nil
}

// RuleDefaults returns the engine section as rule set defaults, applied
// beneath each rule file's own defaults.
func (c *EngineConfig) RuleDefaults() ruleset.RuleSettings {
	shortCircuit := c.ShortCircuit
	resolution := c.AmbiguousResolution
	allowBare := c.AllowBareField
	maxDepth := c.MaxDepth

	settings := ruleset.RuleSettings{
		ShortCircuit:        &shortCircuit,
		AmbiguousResolution: &resolution,
		AllowBareField:      &allowBare,
		MaxDepth:            &maxDepth,
	}
	if c.DefaultField != "" {
		field := c.DefaultField
		settings.DefaultField = &field
	}
	return settings
}

// Manager builds the rule set manager configuration from the rules and engine
// sections.
func (c *Config) Manager(logger *slog.Logger, observer ruleset.Observer, engineObserver engine.Observer) *ruleset.Config {
	loader := ruleset.DefaultLoaderConfig()
	if c.Rules.MaxFileSize > 0 {
		loader.MaxFileSize = c.Rules.MaxFileSize
	}
	cfg := &ruleset.Config{
		Path:             c.Rules.Path,
		Defaults:         c.Engine.RuleDefaults(),
		Loader:           loader,
		DebounceInterval: c.Rules.Debounce,
		Logger:           logger,
		Observer:         observer,
		EngineObserver:   engineObserver,
	}
	if c.Engine.MaxQueryLength > 0 {
		cfg.Parser = parser.NewParser().WithMaxLength(c.Engine.MaxQueryLength)
	}
	return cfg
}
