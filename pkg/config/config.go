package config

import "time"

// Config is the root configuration structure for querydict. It covers the
// query engine defaults, rule set loading, the decision log, the HTTP server
// and telemetry.
type Config struct {
	// Engine contains the default query engine settings. Rules may override
	// them individually.
	Engine EngineConfig `yaml:"engine"`

	// Rules contains rule set location and hot reload settings.
	Rules RulesConfig `yaml:"rules"`

	// Decisions contains decision log storage and retention settings.
	Decisions DecisionsConfig `yaml:"decisions"`

	// Server contains HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains logging, metrics, tracing and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// EngineConfig contains query engine defaults.
type EngineConfig struct {
	// ShortCircuit stops evaluating AND/OR operands once the result is known.
	// Default: true
	ShortCircuit bool `yaml:"short_circuit"`

	// AmbiguousResolution controls implicit juxtaposition ("a:x b:y").
	// Options: "AND", "OR", "Reject"
	// Default: "AND"
	AmbiguousResolution string `yaml:"ambiguous_resolution"`

	// AllowBareField permits terms without a field qualifier.
	// Default: false
	AllowBareField bool `yaml:"allow_bare_field"`

	// MaxDepth is the maximum accepted expression depth.
	// Default: 10
	MaxDepth int `yaml:"max_depth"`

	// DefaultField is used to match unqualified terms.
	DefaultField string `yaml:"default_field"`

	// MaxQueryLength bounds the accepted query string length in bytes.
	// Default: 4096
	MaxQueryLength int `yaml:"max_query_length"`
}

// RulesConfig contains rule set configuration.
type RulesConfig struct {
	// Path is a rule file or a directory of rule files. Empty disables rule
	// sets.
	Path string `yaml:"path"`

	// Watch reloads rules when files change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce is the quiet period before a reload after file changes.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`

	// MaxFileSize is the largest accepted rule file in bytes.
	// Default: 1048576 (1MB)
	MaxFileSize int64 `yaml:"max_file_size"`
}

// DecisionsConfig contains decision log configuration.
type DecisionsConfig struct {
	// Enabled turns on decision recording for rule set evaluations.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the store.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite store settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains async recorder settings.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains pruning settings.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite store configuration.
type SQLiteConfig struct {
	// Driver selects the database/sql driver.
	// Options: "sqlite" (modernc.org/sqlite), "sqlite3" (mattn/go-sqlite3)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// Path is the database file path.
	// Default: "data/decisions.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains decision recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the write queue.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds each storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains decision pruning configuration.
type RetentionConfig struct {
	// RetentionDays is how long decisions are kept. 0 keeps them forever.
	// Default: 30
	RetentionDays int `yaml:"retention_days"`

	// MaxRecords caps the number of stored decisions. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`

	// PruneSchedule is a standard 5-field cron expression. Empty disables
	// scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits request bodies.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// Auth contains API key authentication for the /v1 routes.
	Auth AuthConfig `yaml:"auth"`

	// TLS contains TLS settings for the listener.
	TLS TLSConfig `yaml:"tls"`

	// RateLimit throttles /v1 requests per client.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig contains per-client request throttling. Clients are told
// apart by API key name when auth is enabled and by remote IP otherwise.
type RateLimitConfig struct {
	// Enabled turns on throttling.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained rate per client.
	// Default: 50
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the number of requests a client may make at once.
	// Default: 100
	Burst int `yaml:"burst"`

	// IdleTTL is how long an idle client's state is kept.
	// Default: 10m
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// AuthConfig contains API key authentication configuration. Health,
// version and metrics endpoints are never authenticated.
type AuthConfig struct {
	// Enabled requires a valid API key on every /v1 route.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Header is the request header carrying the key.
	// Default: "Authorization"
	Header string `yaml:"header"`

	// Scheme is the prefix stripped from the header value, e.g. "Bearer".
	// Empty means the whole value is the key.
	// Default: "Bearer"
	Scheme string `yaml:"scheme"`

	// Keys lists the accepted keys.
	Keys []APIKeyConfig `yaml:"keys"`
}

// APIKeyConfig is one accepted API key.
type APIKeyConfig struct {
	// Name identifies the key in logs.
	Name string `yaml:"name"`

	// Key is the key value. Exactly one of Key and KeyEnv is set.
	Key string `yaml:"key"`

	// KeyEnv names an environment variable holding the key.
	KeyEnv string `yaml:"key_env"`

	// Disabled rejects the key without removing it.
	Disabled bool `yaml:"disabled"`
}

// TLSConfig contains listener TLS configuration.
type TLSConfig struct {
	// Enabled serves HTTPS instead of HTTP.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the lowest accepted protocol version.
	// Options: "1.2", "1.3"
	// Default: "1.3"
	MinVersion string `yaml:"min_version"`

	// ReloadInterval is how often the certificate files are checked for
	// changes. 0 disables reloading.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactKeys lists attribute keys whose values are replaced with
	// "[REDACTED]", e.g. "value" to keep record contents out of debug logs.
	RedactKeys []string `yaml:"redact_keys"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "querydict"
	Namespace string `yaml:"namespace"`

	// MatchDurationBuckets are histogram buckets for match duration (seconds).
	// Default: exponential from 1µs to about 16ms
	MatchDurationBuckets []float64 `yaml:"match_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint, e.g. "localhost:4317".
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "querydict"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS to the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the liveness probe path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each component check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
