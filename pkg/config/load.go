package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "QUERYDICT_"

// LoadConfig loads configuration from a YAML file on top of the defaults and
// validates it. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides named QUERYDICT_SECTION_FIELD (e.g.
// QUERYDICT_SERVER_LISTEN_ADDRESS). An empty path loads the defaults.
//
// The loading sequence is:
// 1. Start from NewDefaultConfig
// 2. Decode the YAML file on top
// 3. Apply environment variable overrides
// 4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	errs := applyEnvOverrides(cfg, os.LookupEnv)
	ApplyDefaults(cfg)

	if verr := Validate(cfg); verr != nil {
		if ve, ok := verr.(ValidationError); ok {
			errs = append(errs, ve.Errors...)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %w", ValidationError{Errors: errs})
	}

	return cfg, nil
}

func load(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// envOverride binds one environment variable to one configuration field.
type envOverride struct {
	name  string
	field string
	set   func(cfg *Config, val string) error
}

func stringVar(get func(*Config) *string) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		*get(cfg) = val
		return nil
	}
}

func boolVar(get func(*Config) *bool) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		b, err := cast.ToBoolE(val)
		if err != nil {
			return err
		}
		*get(cfg) = b
		return nil
	}
}

func intVar(get func(*Config) *int) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		i, err := cast.ToIntE(val)
		if err != nil {
			return err
		}
		*get(cfg) = i
		return nil
	}
}

func int64Var(get func(*Config) *int64) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		i, err := cast.ToInt64E(val)
		if err != nil {
			return err
		}
		*get(cfg) = i
		return nil
	}
}

func floatVar(get func(*Config) *float64) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return err
		}
		*get(cfg) = f
		return nil
	}
}

func durationVar(get func(*Config) *time.Duration) func(*Config, string) error {
	return func(cfg *Config, val string) error {
		d, err := cast.ToDurationE(val)
		if err != nil {
			return err
		}
		*get(cfg) = d
		return nil
	}
}

var envOverrides = []envOverride{
	// Engine
	{"ENGINE_SHORT_CIRCUIT", "engine.short_circuit", boolVar(func(c *Config) *bool { return &c.Engine.ShortCircuit })},
	{"ENGINE_AMBIGUOUS_RESOLUTION", "engine.ambiguous_resolution", stringVar(func(c *Config) *string { return &c.Engine.AmbiguousResolution })},
	{"ENGINE_ALLOW_BARE_FIELD", "engine.allow_bare_field", boolVar(func(c *Config) *bool { return &c.Engine.AllowBareField })},
	{"ENGINE_MAX_DEPTH", "engine.max_depth", intVar(func(c *Config) *int { return &c.Engine.MaxDepth })},
	{"ENGINE_DEFAULT_FIELD", "engine.default_field", stringVar(func(c *Config) *string { return &c.Engine.DefaultField })},
	{"ENGINE_MAX_QUERY_LENGTH", "engine.max_query_length", intVar(func(c *Config) *int { return &c.Engine.MaxQueryLength })},

	// Rules
	{"RULES_PATH", "rules.path", stringVar(func(c *Config) *string { return &c.Rules.Path })},
	{"RULES_WATCH", "rules.watch", boolVar(func(c *Config) *bool { return &c.Rules.Watch })},
	{"RULES_DEBOUNCE", "rules.debounce", durationVar(func(c *Config) *time.Duration { return &c.Rules.Debounce })},

	// Decisions
	{"DECISIONS_ENABLED", "decisions.enabled", boolVar(func(c *Config) *bool { return &c.Decisions.Enabled })},
	{"DECISIONS_BACKEND", "decisions.backend", stringVar(func(c *Config) *string { return &c.Decisions.Backend })},
	{"DECISIONS_SQLITE_DRIVER", "decisions.sqlite.driver", stringVar(func(c *Config) *string { return &c.Decisions.SQLite.Driver })},
	{"DECISIONS_SQLITE_PATH", "decisions.sqlite.path", stringVar(func(c *Config) *string { return &c.Decisions.SQLite.Path })},
	{"DECISIONS_SQLITE_WAL_MODE", "decisions.sqlite.wal_mode", boolVar(func(c *Config) *bool { return &c.Decisions.SQLite.WALMode })},
	{"DECISIONS_SQLITE_BUSY_TIMEOUT", "decisions.sqlite.busy_timeout", durationVar(func(c *Config) *time.Duration { return &c.Decisions.SQLite.BusyTimeout })},
	{"DECISIONS_RETENTION_DAYS", "decisions.retention.retention_days", intVar(func(c *Config) *int { return &c.Decisions.Retention.RetentionDays })},
	{"DECISIONS_RETENTION_MAX_RECORDS", "decisions.retention.max_records", int64Var(func(c *Config) *int64 { return &c.Decisions.Retention.MaxRecords })},
	{"DECISIONS_RETENTION_PRUNE_SCHEDULE", "decisions.retention.prune_schedule", stringVar(func(c *Config) *string { return &c.Decisions.Retention.PruneSchedule })},

	// Server
	{"SERVER_LISTEN_ADDRESS", "server.listen_address", stringVar(func(c *Config) *string { return &c.Server.ListenAddress })},
	{"SERVER_READ_TIMEOUT", "server.read_timeout", durationVar(func(c *Config) *time.Duration { return &c.Server.ReadTimeout })},
	{"SERVER_WRITE_TIMEOUT", "server.write_timeout", durationVar(func(c *Config) *time.Duration { return &c.Server.WriteTimeout })},
	{"SERVER_SHUTDOWN_TIMEOUT", "server.shutdown_timeout", durationVar(func(c *Config) *time.Duration { return &c.Server.ShutdownTimeout })},
	{"SERVER_MAX_BODY_BYTES", "server.max_body_bytes", int64Var(func(c *Config) *int64 { return &c.Server.MaxBodyBytes })},
	{"SERVER_AUTH_ENABLED", "server.auth.enabled", boolVar(func(c *Config) *bool { return &c.Server.Auth.Enabled })},
	{"SERVER_TLS_ENABLED", "server.tls.enabled", boolVar(func(c *Config) *bool { return &c.Server.TLS.Enabled })},
	{"SERVER_TLS_CERT_FILE", "server.tls.cert_file", stringVar(func(c *Config) *string { return &c.Server.TLS.CertFile })},
	{"SERVER_TLS_KEY_FILE", "server.tls.key_file", stringVar(func(c *Config) *string { return &c.Server.TLS.KeyFile })},
	{"SERVER_RATE_LIMIT_ENABLED", "server.rate_limit.enabled", boolVar(func(c *Config) *bool { return &c.Server.RateLimit.Enabled })},
	{"SERVER_RATE_LIMIT_RPS", "server.rate_limit.requests_per_second", floatVar(func(c *Config) *float64 { return &c.Server.RateLimit.RequestsPerSecond })},
	{"SERVER_RATE_LIMIT_BURST", "server.rate_limit.burst", intVar(func(c *Config) *int { return &c.Server.RateLimit.Burst })},

	// Telemetry
	{"TELEMETRY_LOGGING_LEVEL", "telemetry.logging.level", stringVar(func(c *Config) *string { return &c.Telemetry.Logging.Level })},
	{"TELEMETRY_LOGGING_FORMAT", "telemetry.logging.format", stringVar(func(c *Config) *string { return &c.Telemetry.Logging.Format })},
	{"TELEMETRY_LOGGING_ADD_SOURCE", "telemetry.logging.add_source", boolVar(func(c *Config) *bool { return &c.Telemetry.Logging.AddSource })},
	{"TELEMETRY_METRICS_ENABLED", "telemetry.metrics.enabled", boolVar(func(c *Config) *bool { return &c.Telemetry.Metrics.Enabled })},
	{"TELEMETRY_METRICS_PATH", "telemetry.metrics.path", stringVar(func(c *Config) *string { return &c.Telemetry.Metrics.Path })},
	{"TELEMETRY_TRACING_ENABLED", "telemetry.tracing.enabled", boolVar(func(c *Config) *bool { return &c.Telemetry.Tracing.Enabled })},
	{"TELEMETRY_TRACING_ENDPOINT", "telemetry.tracing.endpoint", stringVar(func(c *Config) *string { return &c.Telemetry.Tracing.Endpoint })},
	{"TELEMETRY_TRACING_SAMPLER", "telemetry.tracing.sampler", stringVar(func(c *Config) *string { return &c.Telemetry.Tracing.Sampler })},
	{"TELEMETRY_TRACING_SAMPLE_RATIO", "telemetry.tracing.sample_ratio", floatVar(func(c *Config) *float64 { return &c.Telemetry.Tracing.SampleRatio })},
}

// applyEnvOverrides applies QUERYDICT_* variables found by lookup.
// Unparsable values are returned as field errors.
func applyEnvOverrides(cfg *Config, lookup func(string) (string, bool)) []FieldError {
	var errs []FieldError
	for _, o := range envOverrides {
		val, ok := lookup(EnvPrefix + o.name)
		if !ok || strings.TrimSpace(val) == "" {
			continue
		}
		if err := o.set(cfg, strings.TrimSpace(val)); err != nil {
			errs = append(errs, FieldError{
				Field:   o.field,
				Message: fmt.Sprintf("invalid value %q from %s%s: %v", val, EnvPrefix, o.name, err),
			})
		}
	}
	return errs
}
