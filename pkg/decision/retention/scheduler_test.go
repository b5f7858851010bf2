package retention

import (
	"context"
	"testing"

	"querydict-hq/querydict/pkg/decision/storage"
)

func TestScheduler_StartStop(t *testing.T) {
	p := NewPruner(storage.NewMemoryStore(), &Config{RetentionDays: 1, PruneSchedule: "0 3 * * *"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !p.scheduler.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	next := p.NextPruning()
	if next == nil || next.Hour() != 3 || next.Minute() != 0 {
		t.Errorf("NextPruning() = %v, want 03:00", next)
	}
	if err := p.Start(ctx); err == nil {
		t.Error("second Start() expected error")
	}

	p.Stop()
	if p.scheduler.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestScheduler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{"empty schedule disables", "", false},
		{"invalid", "every day", true},
		{"six fields", "0 0 3 * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPruner(storage.NewMemoryStore(), &Config{PruneSchedule: tt.schedule}, nil)
			err := p.Start(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("Start() error = %v, wantErr %v", err, tt.wantErr)
			}
			if p.scheduler.IsRunning() {
				t.Error("scheduler running")
				p.Stop()
			}
		})
	}
}
