package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"querydict-hq/querydict/pkg/config"
	"querydict-hq/querydict/pkg/decision"
	"querydict-hq/querydict/pkg/query/engine"
	"querydict-hq/querydict/pkg/ruleset"
	"querydict-hq/querydict/pkg/telemetry/health"
	"querydict-hq/querydict/pkg/telemetry/metrics"
	"querydict-hq/querydict/pkg/telemetry/tracing"
)

// RuleEvaluator evaluates raw JSON records against the active rule set.
// *ruleset.Manager implements it.
type RuleEvaluator interface {
	EvaluateJSON(ctx context.Context, data []byte) (*ruleset.Result, error)
}

// DecisionRecorder records rule set evaluations. *decision.Recorder
// implements it.
type DecisionRecorder interface {
	Record(ctx context.Context, result *ruleset.Result, record interface{}) (*decision.Decision, error)
}

// Dependencies are the components the server routes to. Everything but
// Logger is optional; routes whose component is missing answer 503.
type Dependencies struct {
	Rules     RuleEvaluator
	Recorder  DecisionRecorder
	Decisions decision.Store
	Metrics   *metrics.Collector
	Tracer    *tracing.Tracer
	Health    *health.Checker
	Logger    *slog.Logger

	// Version, Commit and BuildTime are served on /version.
	Version   string
	Commit    string
	BuildTime string
}

// Server is the querydict HTTP server.
type Server struct {
	config       *config.Config
	deps         Dependencies
	logger       *slog.Logger
	engineConfig *engine.Config
	auth         *APIKeyAuth
	limiter      *RateLimiter
	tlsConfig    *tls.Config
	certs        *certReloader
	handler      http.Handler

	httpServer   *http.Server
	listener     net.Listener
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server from cfg. The engine section becomes the
// default configuration for /v1/match and /v1/validate.
func NewServer(cfg *config.Config, deps Dependencies) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server config is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracer == nil {
		tracer, err := tracing.New(&config.TracingConfig{})
		if err != nil {
			return nil, err
		}
		deps.Tracer = tracer
	}
	if deps.Health == nil {
		deps.Health = health.New(cfg.Telemetry.Health.CheckTimeout)
	}

	var observer engine.Observer
	if deps.Metrics != nil {
		observer = deps.Metrics
	}
	engineConfig, err := cfg.Engine.Engine(deps.Logger, observer)
	if err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	s := &Server{
		config:       cfg,
		deps:         deps,
		logger:       deps.Logger,
		engineConfig: engineConfig,
	}
	if cfg.Server.Auth.Enabled {
		s.auth, err = NewAPIKeyAuth(&cfg.Server.Auth, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid auth config: %w", err)
		}
	}
	if cfg.Server.RateLimit.Enabled {
		s.limiter = NewRateLimiter(&cfg.Server.RateLimit)
	}
	if cfg.Server.TLS.Enabled {
		s.tlsConfig, s.certs, err = newTLSConfig(&cfg.Server.TLS, deps.Logger)
		if err != nil {
			return nil, fmt.Errorf("invalid TLS config: %w", err)
		}
	}
	s.handler = s.setupRoutes()
	return s, nil
}

// Start starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	srvCfg := s.config.Server
	listener, err := net.Listen("tcp", srvCfg.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", srvCfg.ListenAddress, err)
	}
	if s.tlsConfig != nil {
		listener = tls.NewListener(listener, s.tlsConfig)
		if srvCfg.TLS.ReloadInterval > 0 {
			go s.certs.run(ctx, srvCfg.TLS.ReloadInterval)
		}
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
		IdleTimeout:  srvCfg.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting querydict server",
			"address", listener.Addr().String(),
			"tls", s.tlsConfig != nil,
			"auth", s.auth != nil,
			"rate_limit", s.limiter != nil,
		)
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		timeout := s.config.Server.ShutdownTimeout
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("querydict server stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	telemetry := s.config.Telemetry

	s.route(mux, http.MethodPost, "/v1/match", s.handleMatch)
	s.route(mux, http.MethodPost, "/v1/validate", s.handleValidate)
	s.route(mux, http.MethodPost, "/v1/rules/evaluate", s.handleEvaluate)
	s.route(mux, http.MethodGet, "/v1/decisions", s.handleDecisions)

	if telemetry.Health.LivenessPath != "" {
		mux.Handle(telemetry.Health.LivenessPath, s.deps.Health.LivenessHandler())
	}
	if telemetry.Health.ReadinessPath != "" {
		mux.Handle(telemetry.Health.ReadinessPath, s.deps.Health.ReadinessHandler())
	}
	mux.Handle("/version", health.VersionHandler(s.deps.Version, s.deps.Commit, s.deps.BuildTime))
	if s.deps.Metrics != nil && telemetry.Metrics.Enabled && telemetry.Metrics.Path != "" {
		mux.Handle(telemetry.Metrics.Path, s.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = limitBodyMiddleware(s.config.Server.MaxBodyBytes)(handler)
	handler = loggingMiddleware(s.logger)(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)

	return handler
}

// route registers an API handler under "METHOD path" with tracing,
// request metrics labelled by path and, when configured, authentication and
// per-client throttling.
func (s *Server) route(mux *http.ServeMux, method, path string, fn http.HandlerFunc) {
	var h http.Handler = fn
	if s.limiter != nil {
		h = s.limiter.Middleware(s.logger)(h)
	}
	if s.auth != nil {
		h = s.auth.Middleware(s.logger)(h)
	}
	if s.deps.Metrics != nil {
		h = metricsMiddleware(s.deps.Metrics, path)(h)
	}
	h = s.deps.Tracer.Middleware(path, h)
	mux.Handle(method+" "+path, h)
}
