package ruleset

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	if _, err := NewManager(nil); err == nil {
		t.Error("NewManager(nil) expected error")
	}
	if _, err := NewManager(&Config{}); err == nil {
		t.Error("NewManager(empty path) expected error")
	}
}

func TestManager_LoadAndEvaluate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeFile(t, path, weatherRules)

	mgr, err := NewManager(&Config{Path: path})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	if mgr.Current() != nil {
		t.Error("Current() before Load should be nil")
	}
	if _, err := mgr.Evaluate(context.Background(), englandRecord); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Evaluate() before Load error = %v, want ErrNotLoaded", err)
	}

	if err := mgr.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	result, err := mgr.Evaluate(context.Background(), englandRecord)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if strings.Join(result.Matched, ",") != "rainy-england,any-rain" {
		t.Errorf("Matched = %v", result.Matched)
	}

	result, err = mgr.EvaluateJSON(context.Background(), []byte(`{"country":"France"}`))
	if err != nil {
		t.Fatalf("EvaluateJSON() error = %v", err)
	}
	if strings.Join(result.Matched, ",") != "france" {
		t.Errorf("Matched = %v", result.Matched)
	}

	if loadedAt, lastErr := mgr.Status(); loadedAt.IsZero() || lastErr != nil {
		t.Errorf("Status() = %v, %v", loadedAt, lastErr)
	}
}

func TestManager_ReloadKeepsPreviousOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeFile(t, path, "rules:\n  - name: a\n    query: a:1\n")

	obs := &recordingObserver{}
	mgr, _ := NewManager(&Config{Path: path, Observer: obs})
	if err := mgr.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	first := mgr.Current()

	writeFile(t, path, "rules:\n  - name: a\n    query: 'a:[1 TO 2]'\n")
	if err := mgr.Reload(); err == nil {
		t.Fatal("Reload() expected error")
	}
	if mgr.Current() != first {
		t.Error("failed reload replaced the rule set")
	}
	if _, lastErr := mgr.Status(); lastErr == nil {
		t.Error("Status() lost the reload error")
	}

	writeFile(t, path, "rules:\n  - name: b\n    query: b:1\n")
	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	second := mgr.Current()
	if second == first || second.Version() == first.Version() {
		t.Error("successful reload did not replace the rule set")
	}
	if _, ok := second.Rule("b"); !ok {
		t.Error("reloaded rule set is missing rule b")
	}

	if len(obs.reloads) != 3 || obs.reloads[0] != nil || obs.reloads[1] == nil || obs.reloads[2] != nil {
		t.Errorf("observed reloads = %v", obs.reloads)
	}
}

func TestManager_Validate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	writeFile(t, path, "rules:\n  - name: a\n    query: a:1\n")

	mgr, _ := NewManager(&Config{Path: path})
	if err := mgr.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if mgr.Current() != nil {
		t.Error("Validate() installed a rule set")
	}
}

func TestManager_Watch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	writeFile(t, path, "rules:\n  - name: a\n    query: a:1\n")

	mgr, _ := NewManager(&Config{Path: dir, DebounceInterval: 20 * time.Millisecond})
	if err := mgr.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	first := mgr.Current().Version()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- mgr.Watch(ctx) }()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	if err := mgr.Watch(ctx); err == nil {
		t.Error("second Watch() expected error")
	}

	writeFile(t, path, "rules:\n  - name: a\n    query: a:2\n")

	deadline := time.Now().Add(3 * time.Second)
	for mgr.Current().Version() == first {
		if time.Now().After(deadline) {
			t.Fatal("rule set was not reloaded")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rule, _ := mgr.Current().Rule("a")
	if rule.Query != "a:2" {
		t.Errorf("Query = %q, want a:2", rule.Query)
	}

	if err := mgr.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() did not return after Close")
	}
}

func TestDebouncer(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}

	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls after Stop = %d, want 1", got)
	}
}
