package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"querydict-hq/querydict/pkg/decision"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain decisions.
	// 0 keeps decisions forever.
	RetentionDays int

	// PruneSchedule is a standard 5-field cron expression.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// MaxRecords is the maximum number of decisions to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
		MaxRecords:    0,
	}
}

// Observer receives the number of decisions removed by each prune.
type Observer interface {
	ObservePruned(count int64)
}

// Pruner enforces retention on a decision store.
type Pruner struct {
	store     decision.Store
	config    *Config
	logger    *slog.Logger
	observer  Observer
	scheduler *Scheduler
	now       func() time.Time
}

// NewPruner creates a pruner for store. observer may be nil.
func NewPruner(store decision.Store, config *Config, observer Observer) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Pruner{
		store:    store,
		config:   config,
		logger:   slog.Default().With("component", "decision.retention"),
		observer: observer,
		now:      time.Now,
	}
	p.scheduler = NewScheduler(p)

	return p
}

// Prune deletes decisions older than the retention period, then the oldest
// decisions beyond MaxRecords. It returns the total number deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		deleted, err := p.pruneByAge(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by age failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned decisions by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return total, fmt.Errorf("prune by count failed: %w", err)
		}
		total += deleted
		p.logger.Debug("pruned decisions by count",
			"deleted_count", deleted,
			"max_records", p.config.MaxRecords,
		)
	}

	if p.observer != nil {
		p.observer.ObservePruned(total)
	}

	if total > 0 {
		p.logger.Info("decision pruning completed",
			"total_deleted", total,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return total, nil
}

func (p *Pruner) pruneByAge(ctx context.Context) (int64, error) {
	cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)

	deleted, err := p.store.Delete(ctx, &decision.Query{EndTime: &cutoff})
	if err != nil {
		return 0, decision.NewRetentionError(p.config.RetentionDays, err)
	}
	return deleted, nil
}

// pruneByCount deletes the oldest decisions so that at most MaxRecords
// remain. Decisions sharing the cutoff timestamp are deleted together.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.store.Count(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count decisions: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	excess := count - p.config.MaxRecords
	oldest, err := p.store.Query(ctx, &decision.Query{
		SortOrder: "asc",
		Limit:     int(excess),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query decisions: %w", err)
	}
	if len(oldest) == 0 {
		return 0, nil
	}

	cutoff := oldest[len(oldest)-1].Timestamp
	p.logger.Info("decision count exceeds limit, pruning oldest",
		"current_count", count,
		"max_records", p.config.MaxRecords,
		"cutoff_time", cutoff,
	)

	deleted, err := p.store.Delete(ctx, &decision.Query{EndTime: &cutoff})
	if err != nil {
		return 0, fmt.Errorf("delete failed: %w", err)
	}
	return deleted, nil
}

// Start starts the pruning schedule.
func (p *Pruner) Start(ctx context.Context) error {
	return p.scheduler.Start(ctx)
}

// Stop stops the pruning schedule and waits for a running prune.
func (p *Pruner) Stop() {
	p.scheduler.Stop()
}

// NextPruning returns the time of the next scheduled prune, or nil.
func (p *Pruner) NextPruning() *time.Time {
	return p.scheduler.NextRun()
}
