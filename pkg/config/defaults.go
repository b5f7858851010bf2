package config

import "time"

// Default values for configuration fields.
const (
	// Engine defaults
	DefaultShortCircuit        = true
	DefaultAmbiguousResolution = "AND"
	DefaultMaxDepth            = 10
	DefaultMaxQueryLength      = 4096

	// Rules defaults
	DefaultRulesDebounce    = 100 * time.Millisecond
	DefaultRulesMaxFileSize = int64(1024 * 1024)

	// Decisions defaults
	DefaultDecisionsBackend       = "sqlite"
	DefaultSQLiteDriver           = "sqlite"
	DefaultSQLitePath             = "data/decisions.db"
	DefaultSQLiteMaxOpenConns     = 10
	DefaultSQLiteMaxIdleConns     = 5
	DefaultSQLiteWALMode          = true
	DefaultSQLiteBusyTimeout      = 5 * time.Second
	DefaultRecorderAsyncBuffer    = 1000
	DefaultRecorderWriteTimeout   = 5 * time.Second
	DefaultRetentionDays          = 30
	DefaultRetentionPruneSchedule = "0 3 * * *"

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(1024 * 1024)
	DefaultAuthHeader      = "Authorization"
	DefaultAuthScheme      = "Bearer"
	DefaultTLSMinVersion   = "1.3"
	DefaultTLSReload       = 5 * time.Minute
	DefaultRateLimitRPS    = 50.0
	DefaultRateLimitBurst  = 100
	DefaultRateLimitTTL    = 10 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "querydict"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingServiceName = "querydict"
	DefaultTracingInsecure    = true
	DefaultTracingTimeout     = 10 * time.Second
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 5 * time.Second
)

// NewDefaultConfig returns a configuration with every default applied,
// including the boolean defaults that ApplyDefaults cannot tell apart from
// an explicit false. Files are decoded on top of it.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Engine.ShortCircuit = DefaultShortCircuit
	cfg.Decisions.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	cfg.Decisions.Retention.RetentionDays = DefaultRetentionDays
	cfg.Decisions.Retention.PruneSchedule = DefaultRetentionPruneSchedule
	cfg.Server.Auth.Scheme = DefaultAuthScheme
	cfg.Server.TLS.ReloadInterval = DefaultTLSReload
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets defaults for fields that have zero values. It is
// idempotent.
func ApplyDefaults(cfg *Config) {
	// Engine defaults
	if cfg.Engine.AmbiguousResolution == "" {
		cfg.Engine.AmbiguousResolution = DefaultAmbiguousResolution
	}
	if cfg.Engine.MaxDepth == 0 {
		cfg.Engine.MaxDepth = DefaultMaxDepth
	}
	if cfg.Engine.MaxQueryLength == 0 {
		cfg.Engine.MaxQueryLength = DefaultMaxQueryLength
	}

	// Rules defaults
	if cfg.Rules.Debounce == 0 {
		cfg.Rules.Debounce = DefaultRulesDebounce
	}
	if cfg.Rules.MaxFileSize == 0 {
		cfg.Rules.MaxFileSize = DefaultRulesMaxFileSize
	}

	// Decisions defaults
	if cfg.Decisions.Backend == "" {
		cfg.Decisions.Backend = DefaultDecisionsBackend
	}
	if cfg.Decisions.SQLite.Driver == "" {
		cfg.Decisions.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.Decisions.SQLite.Path == "" {
		cfg.Decisions.SQLite.Path = DefaultSQLitePath
	}
	if cfg.Decisions.SQLite.MaxOpenConns == 0 {
		cfg.Decisions.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.Decisions.SQLite.MaxIdleConns == 0 {
		cfg.Decisions.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.Decisions.SQLite.BusyTimeout == 0 {
		cfg.Decisions.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if cfg.Decisions.Recorder.AsyncBuffer == 0 {
		cfg.Decisions.Recorder.AsyncBuffer = DefaultRecorderAsyncBuffer
	}
	if cfg.Decisions.Recorder.WriteTimeout == 0 {
		cfg.Decisions.Recorder.WriteTimeout = DefaultRecorderWriteTimeout
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Server.Auth.Header == "" {
		cfg.Server.Auth.Header = DefaultAuthHeader
	}
	if cfg.Server.TLS.MinVersion == "" {
		cfg.Server.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.Server.RateLimit.RequestsPerSecond == 0 {
		cfg.Server.RateLimit.RequestsPerSecond = DefaultRateLimitRPS
	}
	if cfg.Server.RateLimit.Burst == 0 {
		cfg.Server.RateLimit.Burst = DefaultRateLimitBurst
	}
	if cfg.Server.RateLimit.IdleTTL == 0 {
		cfg.Server.RateLimit.IdleTTL = DefaultRateLimitTTL
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}
	if cfg.Telemetry.Health.LivenessPath == "" {
		cfg.Telemetry.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Telemetry.Health.ReadinessPath == "" {
		cfg.Telemetry.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
