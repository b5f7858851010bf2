package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "querydict.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if !cfg.Engine.ShortCircuit {
		t.Error("ShortCircuit should default to true")
	}
	if cfg.Engine.AmbiguousResolution != "AND" || cfg.Engine.MaxDepth != 10 {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if !cfg.Decisions.SQLite.WALMode || cfg.Decisions.SQLite.Driver != "sqlite" {
		t.Errorf("SQLite = %+v", cfg.Decisions.SQLite)
	}
	if cfg.Decisions.Retention.RetentionDays != 30 || cfg.Decisions.Retention.PruneSchedule != "0 3 * * *" {
		t.Errorf("Retention = %+v", cfg.Decisions.Retention)
	}
	if !cfg.Telemetry.Metrics.Enabled || cfg.Telemetry.Metrics.Namespace != "querydict" {
		t.Errorf("Metrics = %+v", cfg.Telemetry.Metrics)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:8080" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.Auth.Header != "Authorization" || cfg.Server.Auth.Scheme != "Bearer" {
		t.Errorf("Auth = %+v", cfg.Server.Auth)
	}
	if cfg.Server.TLS.MinVersion != "1.3" || cfg.Server.TLS.ReloadInterval != 5*time.Minute {
		t.Errorf("TLS = %+v", cfg.Server.TLS)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Server.ListenAddress = "0.0.0.0:9000"
	ApplyDefaults(cfg)
	ApplyDefaults(cfg)

	if cfg.Server.ListenAddress != "0.0.0.0:9000" {
		t.Errorf("ApplyDefaults overwrote ListenAddress: %q", cfg.Server.ListenAddress)
	}
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
engine:
  short_circuit: false
  ambiguous_resolution: OR
  max_depth: 4
  default_field: message
rules:
  path: ./rules
  watch: true
  debounce: 250ms
decisions:
  enabled: true
  sqlite:
    driver: sqlite3
    path: /tmp/decisions.db
    wal_mode: false
  retention:
    retention_days: 7
    max_records: 1000
server:
  listen_address: "0.0.0.0:9090"
  read_timeout: 10s
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Engine.ShortCircuit || cfg.Engine.AmbiguousResolution != "OR" || cfg.Engine.MaxDepth != 4 || cfg.Engine.DefaultField != "message" {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Rules.Path != "./rules" || !cfg.Rules.Watch || cfg.Rules.Debounce != 250*time.Millisecond {
		t.Errorf("Rules = %+v", cfg.Rules)
	}
	if cfg.Decisions.SQLite.Driver != "sqlite3" || cfg.Decisions.SQLite.WALMode {
		t.Errorf("SQLite = %+v", cfg.Decisions.SQLite)
	}
	if cfg.Decisions.Retention.RetentionDays != 7 || cfg.Decisions.Retention.MaxRecords != 1000 {
		t.Errorf("Retention = %+v", cfg.Decisions.Retention)
	}
	// Unset fields keep their defaults.
	if cfg.Decisions.Retention.PruneSchedule != "0 3 * * *" {
		t.Errorf("PruneSchedule = %q", cfg.Decisions.Retention.PruneSchedule)
	}
	if cfg.Server.ReadTimeout != 10*time.Second || cfg.Server.WriteTimeout != DefaultWriteTimeout {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Telemetry.Logging.Level != "debug" || cfg.Telemetry.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Telemetry.Logging)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
		want    string
	}{
		{name: "missing file", path: "/nonexistent/querydict.yaml", want: "failed to read configuration file"},
		{name: "bad yaml", content: "engine: [", want: "failed to parse configuration file"},
		{name: "bad resolution", content: "engine:\n  ambiguous_resolution: XOR\n", want: "engine.ambiguous_resolution"},
		{name: "bad cron", content: "decisions:\n  retention:\n    prune_schedule: every day\n", want: "decisions.retention.prune_schedule"},
		{name: "bad driver", content: "decisions:\n  sqlite:\n    driver: postgres\n", want: "decisions.sqlite.driver"},
		{name: "watch without path", content: "rules:\n  watch: true\n", want: "rules.path"},
		{name: "tracing without endpoint", content: "telemetry:\n  tracing:\n    enabled: true\n", want: "telemetry.tracing.endpoint"},
		{name: "bad address", content: "server:\n  listen_address: localhost\n", want: "server.listen_address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path
			if path == "" {
				path = writeConfig(t, tt.content)
			}

			_, err := LoadConfig(path)
			if err == nil {
				t.Fatal("LoadConfig() expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Engine.MaxDepth = 0
	cfg.Telemetry.Logging.Level = "loud"
	cfg.Decisions.Backend = "s3"

	err := Validate(cfg)
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %T, want ValidationError", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("len(Errors) = %d, want 3: %v", len(ve.Errors), ve)
	}
	if !strings.HasPrefix(err.Error(), "3 errors:") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestValidate_ServerSecurity(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:   "auth disabled without keys",
			modify: func(c *Config) {},
		},
		{
			name: "auth with env key",
			modify: func(c *Config) {
				c.Server.Auth.Enabled = true
				c.Server.Auth.Keys = []APIKeyConfig{{Name: "ci", KeyEnv: "CI_KEY"}}
			},
		},
		{
			name:      "auth without keys",
			modify:    func(c *Config) { c.Server.Auth.Enabled = true },
			wantField: "server.auth.keys",
		},
		{
			name: "key and key_env both set",
			modify: func(c *Config) {
				c.Server.Auth.Enabled = true
				c.Server.Auth.Keys = []APIKeyConfig{{Name: "ci", Key: "k", KeyEnv: "CI_KEY"}}
			},
			wantField: "server.auth.keys[0]",
		},
		{
			name: "duplicate key names",
			modify: func(c *Config) {
				c.Server.Auth.Enabled = true
				c.Server.Auth.Keys = []APIKeyConfig{{Name: "ci", Key: "a"}, {Name: "ci", Key: "b"}}
			},
			wantField: "server.auth.keys[1].name",
		},
		{
			name:      "tls without files",
			modify:    func(c *Config) { c.Server.TLS.Enabled = true },
			wantField: "server.tls",
		},
		{
			name:      "tls 1.1",
			modify:    func(c *Config) { c.Server.TLS.MinVersion = "1.1" },
			wantField: "server.tls.min_version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)

			err := Validate(cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}

			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			found := false
			for _, fe := range ve.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v do not name %q", ve.Errors, tt.wantField)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"QUERYDICT_ENGINE_SHORT_CIRCUIT":            "false",
		"QUERYDICT_ENGINE_MAX_DEPTH":                "3",
		"QUERYDICT_RULES_DEBOUNCE":                  "2s",
		"QUERYDICT_DECISIONS_RETENTION_MAX_RECORDS": "50",
		"QUERYDICT_TELEMETRY_TRACING_SAMPLE_RATIO":  "0.5",
		"QUERYDICT_SERVER_LISTEN_ADDRESS":           "  0.0.0.0:1234 ",
		"QUERYDICT_TELEMETRY_LOGGING_LEVEL":         "",
	}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	cfg := NewDefaultConfig()
	if errs := applyEnvOverrides(cfg, lookup); len(errs) != 0 {
		t.Fatalf("applyEnvOverrides() errors = %v", errs)
	}

	if cfg.Engine.ShortCircuit || cfg.Engine.MaxDepth != 3 {
		t.Errorf("Engine = %+v", cfg.Engine)
	}
	if cfg.Rules.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v", cfg.Rules.Debounce)
	}
	if cfg.Decisions.Retention.MaxRecords != 50 || cfg.Telemetry.Tracing.SampleRatio != 0.5 {
		t.Errorf("MaxRecords = %d, SampleRatio = %v", cfg.Decisions.Retention.MaxRecords, cfg.Telemetry.Tracing.SampleRatio)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:1234" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "info" {
		t.Errorf("empty override changed Level to %q", cfg.Telemetry.Logging.Level)
	}
}

func TestApplyEnvOverrides_InvalidValues(t *testing.T) {
	lookup := func(name string) (string, bool) {
		switch name {
		case "QUERYDICT_ENGINE_MAX_DEPTH":
			return "deep", true
		case "QUERYDICT_RULES_WATCH":
			return "maybe", true
		}
		return "", false
	}

	cfg := NewDefaultConfig()
	errs := applyEnvOverrides(cfg, lookup)
	if len(errs) != 2 {
		t.Fatalf("errors = %v, want 2", errs)
	}
	if errs[0].Field != "engine.max_depth" || errs[1].Field != "rules.watch" {
		t.Errorf("fields = %q, %q", errs[0].Field, errs[1].Field)
	}
	if cfg.Engine.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth changed to %d", cfg.Engine.MaxDepth)
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  listen_address: 127.0.0.1:7000\n")
	t.Setenv("QUERYDICT_SERVER_LISTEN_ADDRESS", "127.0.0.1:7001")
	t.Setenv("QUERYDICT_ENGINE_AMBIGUOUS_RESOLUTION", "reject")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:7001" {
		t.Errorf("ListenAddress = %q, want env value", cfg.Server.ListenAddress)
	}
	if cfg.Engine.AmbiguousResolution != "reject" {
		t.Errorf("AmbiguousResolution = %q", cfg.Engine.AmbiguousResolution)
	}

	t.Setenv("QUERYDICT_ENGINE_MAX_DEPTH", "-1")
	if _, err := LoadConfigWithEnvOverrides(path); err == nil || !strings.Contains(err.Error(), "engine.max_depth") {
		t.Errorf("error = %v, want engine.max_depth", err)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides(\"\") error = %v", err)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
}
