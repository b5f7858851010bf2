package main

import (
	"fmt"

	"querydict-hq/querydict/pkg/config"
	"querydict-hq/querydict/pkg/decision"
	"querydict-hq/querydict/pkg/decision/retention"
	"querydict-hq/querydict/pkg/decision/storage"
)

// openStore opens the decision store selected by the decisions section.
func openStore(cfg *config.DecisionsConfig) (decision.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		store, err := storage.NewSQLiteStore(&storage.SQLiteConfig{
			Driver:       cfg.SQLite.Driver,
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open decision store: %w", err)
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported decision backend: %s", cfg.Backend)
	}
}

func recorderConfig(cfg *config.DecisionsConfig) *decision.RecorderConfig {
	return &decision.RecorderConfig{
		Enabled:      true,
		AsyncBuffer:  cfg.Recorder.AsyncBuffer,
		WriteTimeout: cfg.Recorder.WriteTimeout,
	}
}

func retentionConfig(cfg *config.DecisionsConfig) *retention.Config {
	return &retention.Config{
		RetentionDays: cfg.Retention.RetentionDays,
		PruneSchedule: cfg.Retention.PruneSchedule,
		MaxRecords:    cfg.Retention.MaxRecords,
	}
}
