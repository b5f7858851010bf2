package ruleset

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Manager owns the active rule set. Reloads compile a complete new set and
// swap it in atomically; a failed reload keeps the previous set.
type Manager struct {
	config *Config
	loader *Loader
	logger *slog.Logger

	current atomic.Pointer[RuleSet]

	mu            sync.Mutex // serializes reloads
	lastLoadTime  time.Time
	lastLoadError error

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
}

// NewManager creates a manager for cfg.Path. Nothing is loaded until Load.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("rule path cannot be empty")
	}

	return &Manager{
		config: cfg,
		loader: NewLoader(cfg.Loader),
		logger: cfg.logger().With("component", "ruleset.manager"),
	}, nil
}

// Load reads and compiles the rule set. It is the same as Reload.
func (m *Manager) Load() error {
	return m.Reload()
}

// Reload reads and compiles the rule set from disk and makes it current.
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	rs, err := m.build()
	if err != nil {
		m.notifyReload(err)
		m.lastLoadError = err
		attrs := []interface{}{"path", m.config.Path, "error", err, "duration_ms", time.Since(start).Milliseconds()}
		if prev := m.current.Load(); prev != nil {
			m.logger.Error("rule reload failed, keeping previous rule set", append(attrs, "version", prev.Version())...)
		} else {
			m.logger.Error("rule load failed", attrs...)
		}
		return err
	}

	m.current.Store(rs)
	m.lastLoadTime = time.Now()
	m.lastLoadError = nil
	m.notifyReload(nil)

	m.logger.Info("rule set loaded",
		"path", m.config.Path,
		"version", rs.Version(),
		"rules", len(rs.rules),
		"mode", rs.Mode(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// notifyReload runs after the new rule set, if any, is current.
func (m *Manager) notifyReload(err error) {
	if m.config.Observer != nil {
		m.config.Observer.ObserveReload(err)
	}
}

// Validate compiles the rule set without making it current.
func (m *Manager) Validate() error {
	_, err := m.build()
	return err
}

func (m *Manager) build() (*RuleSet, error) {
	sources, err := m.loader.Load(m.config.Path)
	if err != nil {
		return nil, err
	}
	return Compile(sources, m.config)
}

// Current returns the active rule set, or nil before the first successful load.
func (m *Manager) Current() *RuleSet {
	return m.current.Load()
}

// Evaluate evaluates record against the active rule set.
func (m *Manager) Evaluate(ctx context.Context, record interface{}) (*Result, error) {
	rs := m.current.Load()
	if rs == nil {
		return nil, ErrNotLoaded
	}
	return rs.Evaluate(ctx, record)
}

// EvaluateJSON evaluates a raw JSON document against the active rule set.
func (m *Manager) EvaluateJSON(ctx context.Context, data []byte) (*Result, error) {
	rs := m.current.Load()
	if rs == nil {
		return nil, ErrNotLoaded
	}
	return rs.EvaluateJSON(ctx, data)
}

// Status reports when the rule set was last loaded and the last reload error.
func (m *Manager) Status() (loadedAt time.Time, lastErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLoadTime, m.lastLoadError
}

// Watch reloads the rule set whenever files under the configured path change.
// It blocks until ctx is cancelled or Close is called.
func (m *Manager) Watch(ctx context.Context) error {
	m.watchMu.Lock()
	if m.watchCancel != nil {
		m.watchMu.Unlock()
		return fmt.Errorf("watch already started")
	}
	ctx, cancel := context.WithCancel(ctx)
	m.watchCancel = cancel
	m.watchMu.Unlock()

	defer func() {
		m.watchMu.Lock()
		m.watchCancel = nil
		m.watchMu.Unlock()
		cancel()
	}()

	watcher, err := NewFileWatcher(m.config.Path, m.config.DebounceInterval, m.config.Loader, m.logger)
	if err != nil {
		return err
	}

	return watcher.Watch(ctx, func() {
		// Reload logs its own failures.
		_ = m.Reload()
	})
}

// Close stops a running Watch.
func (m *Manager) Close() error {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()

	if m.watchCancel != nil {
		m.watchCancel()
	}
	return nil
}
