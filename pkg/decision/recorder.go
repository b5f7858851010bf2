package decision

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"querydict-hq/querydict/pkg/ruleset"
)

// RecorderConfig contains configuration for the decision recorder.
type RecorderConfig struct {
	// Enabled enables decision recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds each storage write and how long Record waits for
	// buffer space.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes decisions to a Store from a background worker so that
// evaluation never blocks on storage.
type Recorder struct {
	store      Store
	config     *RecorderConfig
	decisionCh chan *Decision
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewRecorder creates a recorder writing to store and starts its worker.
func NewRecorder(store Store, config *RecorderConfig) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		store:      store,
		config:     config,
		decisionCh: make(chan *Decision, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "decision.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("decision recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// New builds a decision from an evaluation result and the evaluated record.
func New(result *ruleset.Result, recordHash string) *Decision {
	matched := make([]string, len(result.Matched))
	copy(matched, result.Matched)

	var errs []ruleset.RuleError
	if len(result.Errors) > 0 {
		errs = make([]ruleset.RuleError, len(result.Errors))
		copy(errs, result.Errors)
	}

	ts := result.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &Decision{
		ID:             uuid.New().String(),
		EvaluationID:   result.EvaluationID,
		RuleSetVersion: result.RuleSetVersion,
		RecordHash:     recordHash,
		MatchedRules:   matched,
		Errors:         errs,
		Evaluated:      result.Evaluated,
		Duration:       result.Duration,
		Timestamp:      ts.UTC(),
	}
}

// Record enqueues the decision for result and record. record is either a
// decoded value or raw JSON bytes.
func (r *Recorder) Record(ctx context.Context, result *ruleset.Result, record interface{}) (*Decision, error) {
	if !r.config.Enabled {
		return nil, nil
	}

	var hash string
	switch v := record.(type) {
	case []byte:
		hash = HashJSON(v)
	default:
		h, err := HashRecord(v)
		if err != nil {
			return nil, err
		}
		hash = h
	}

	d := New(result, hash)

	select {
	case <-r.done:
		r.logger.Warn("recorder closed, dropping decision", "decision_id", d.ID)
		return nil, NewRecorderError(d.ID, ErrRecorderClosed)
	default:
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.decisionCh <- d:
		r.logger.Debug("decision enqueued for writing",
			"decision_id", d.ID,
			"evaluation_id", d.EvaluationID,
		)
		return d, nil
	case <-timer.C:
		r.logger.Error("decision channel full, dropping decision",
			"decision_id", d.ID,
			"channel_capacity", r.config.AsyncBuffer,
		)
		return nil, NewRecorderError(d.ID, context.DeadlineExceeded)
	case <-ctx.Done():
		return nil, NewRecorderError(d.ID, ctx.Err())
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping decision", "decision_id", d.ID)
		return nil, NewRecorderError(d.ID, ErrRecorderClosed)
	}
}

// Close drains pending decisions and waits for the worker to finish.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down decision recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("decision recorder shut down complete")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case d := <-r.decisionCh:
			r.write(d)

		case <-r.done:
			r.logger.Info("draining decision channel before shutdown",
				"pending_count", len(r.decisionCh),
			)
			for {
				select {
				case d := <-r.decisionCh:
					r.write(d)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(d *Decision) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.store.Store(ctx, d); err != nil {
		r.logger.Error("failed to store decision",
			"decision_id", d.ID,
			"evaluation_id", d.EvaluationID,
			"error", err,
		)
		return
	}

	duration := time.Since(start)
	r.logger.Debug("decision recorded",
		"decision_id", d.ID,
		"matched", len(d.MatchedRules),
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow decision write",
			"decision_id", d.ID,
			"duration_ms", duration.Milliseconds(),
		)
	}
}
