package main

import (
	"github.com/spf13/cobra"

	"querydict-hq/querydict/pkg/cli"
	"querydict-hq/querydict/pkg/config"
	"querydict-hq/querydict/pkg/query/engine"
)

// engineFlags are the query engine overrides shared by check and match.
type engineFlags struct {
	shortCircuit   bool
	ambiguous      string
	allowBareField bool
	maxDepth       int
}

func (f *engineFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.shortCircuit, "short-circuit", config.DefaultShortCircuit, "stop evaluating AND/OR operands once the result is known")
	cmd.Flags().StringVar(&f.ambiguous, "ambiguous", "", "implicit juxtaposition: AND, OR or Reject (config value when empty)")
	cmd.Flags().BoolVar(&f.allowBareField, "allow-bare-field", false, "accept terms without a field qualifier")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "maximum expression depth (config value when 0)")
}

// apply overrides cfg with the flags given on the command line.
func (f *engineFlags) apply(cmd *cobra.Command, cfg *config.EngineConfig) {
	if flagChanged(cmd, "short-circuit") {
		cfg.ShortCircuit = f.shortCircuit
	}
	if f.ambiguous != "" {
		cfg.AmbiguousResolution = f.ambiguous
	}
	if flagChanged(cmd, "allow-bare-field") {
		cfg.AllowBareField = f.allowBareField
	}
	if f.maxDepth != 0 {
		cfg.MaxDepth = f.maxDepth
	}
}

// engineConfig loads the configuration file and builds the engine
// configuration with the flag overrides applied.
func (f *engineFlags) engineConfig(cmd *cobra.Command) (*config.Config, *engine.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	f.apply(cmd, &cfg.Engine)

	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	ecfg, err := cfg.Engine.Engine(logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return cfg, ecfg, nil
}
