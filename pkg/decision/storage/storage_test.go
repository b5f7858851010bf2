package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"querydict-hq/querydict/pkg/decision"
	"querydict-hq/querydict/pkg/ruleset"
)

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func testDecisions() []*decision.Decision {
	return []*decision.Decision{
		{ID: "d1", EvaluationID: "e1", RuleSetVersion: "v1", RecordHash: "h1", MatchedRules: []string{"rain", "england"}, Evaluated: 2, Duration: time.Millisecond, Timestamp: base},
		{ID: "d2", EvaluationID: "e2", RuleSetVersion: "v1", RecordHash: "h2", MatchedRules: []string{}, Evaluated: 2, Timestamp: base.Add(time.Hour)},
		{ID: "d3", EvaluationID: "e3", RuleSetVersion: "v2", RecordHash: "h3", MatchedRules: []string{"rain"}, Evaluated: 2, Timestamp: base.Add(2 * time.Hour),
			Errors: []ruleset.RuleError{{Rule: "free-text", Type: "unimplemented", Message: "not implemented"}}},
	}
}

// stores returns every backend under test. The cgo driver is skipped when
// the binary was built without cgo.
func stores(t *testing.T) map[string]decision.Store {
	t.Helper()
	out := map[string]decision.Store{"memory": NewMemoryStore()}

	for _, driver := range []string{DriverModernc, DriverMattn} {
		cfg := DefaultSQLiteConfig()
		cfg.Driver = driver
		cfg.Path = filepath.Join(t.TempDir(), driver+".db")

		s, err := NewSQLiteStore(cfg)
		if err != nil {
			if driver == DriverMattn && strings.Contains(err.Error(), "CGO_ENABLED") {
				continue
			}
			t.Fatalf("NewSQLiteStore(%s) error = %v", driver, err)
		}
		out["sqlite/"+driver] = s
	}

	t.Cleanup(func() {
		for _, s := range out {
			s.Close()
		}
	})
	return out
}

func ids(ds []*decision.Decision) string {
	var out []string
	for _, d := range ds {
		out = append(out, d.ID)
	}
	return strings.Join(out, ",")
}

func TestStore_RoundTrip(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, d := range testDecisions() {
				if err := s.Store(ctx, d); err != nil {
					t.Fatalf("Store() error = %v", err)
				}
			}

			got, err := s.Query(ctx, &decision.Query{SortOrder: "asc"})
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if ids(got) != "d1,d2,d3" {
				t.Fatalf("Query() = %s", ids(got))
			}

			d1 := got[0]
			if d1.EvaluationID != "e1" || d1.RecordHash != "h1" || d1.Duration != time.Millisecond ||
				!d1.Timestamp.Equal(base) || strings.Join(d1.MatchedRules, ",") != "rain,england" {
				t.Errorf("d1 = %+v", d1)
			}
			if len(got[1].MatchedRules) != 0 || got[1].Matched() {
				t.Errorf("d2 = %+v", got[1])
			}
			if len(got[2].Errors) != 1 || got[2].Errors[0].Rule != "free-text" {
				t.Errorf("d3 errors = %+v", got[2].Errors)
			}
		})
	}
}

func TestStore_Query(t *testing.T) {
	start := base.Add(30 * time.Minute)
	end := base.Add(time.Hour)
	yes, no := true, false

	tests := []struct {
		name  string
		query *decision.Query
		want  string
		count int64
	}{
		{"default order is newest first", &decision.Query{}, "d3,d2,d1", 3},
		{"start time", &decision.Query{StartTime: &start, SortOrder: "asc"}, "d2,d3", 2},
		{"end time inclusive", &decision.Query{EndTime: &end, SortOrder: "asc"}, "d1,d2", 2},
		{"ruleset version", &decision.Query{RuleSetVersion: "v2"}, "d3", 1},
		{"matched", &decision.Query{Matched: &yes, SortOrder: "asc"}, "d1,d3", 2},
		{"unmatched", &decision.Query{Matched: &no}, "d2", 1},
		{"matched rule", &decision.Query{MatchedRule: "rain", SortOrder: "asc"}, "d1,d3", 2},
		{"matched rule once", &decision.Query{MatchedRule: "england"}, "d1", 1},
		{"limit and offset", &decision.Query{SortOrder: "asc", Limit: 1, Offset: 1}, "d2", 3},
		{"offset past end", &decision.Query{Offset: 10}, "", 3},
	}

	for name, s := range stores(t) {
		ctx := context.Background()
		for _, d := range testDecisions() {
			if err := s.Store(ctx, d); err != nil {
				t.Fatalf("Store() error = %v", err)
			}
		}

		for _, tt := range tests {
			t.Run(name+"/"+tt.name, func(t *testing.T) {
				got, err := s.Query(ctx, tt.query)
				if err != nil {
					t.Fatalf("Query() error = %v", err)
				}
				if ids(got) != tt.want {
					t.Errorf("Query() = %q, want %q", ids(got), tt.want)
				}

				count, err := s.Count(ctx, tt.query)
				if err != nil {
					t.Fatalf("Count() error = %v", err)
				}
				if count != tt.count {
					t.Errorf("Count() = %d, want %d", count, tt.count)
				}
			})
		}
	}
}

func TestStore_Delete(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, d := range testDecisions() {
				if err := s.Store(ctx, d); err != nil {
					t.Fatalf("Store() error = %v", err)
				}
			}

			cutoff := base.Add(time.Hour)
			deleted, err := s.Delete(ctx, &decision.Query{EndTime: &cutoff})
			if err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if deleted != 2 {
				t.Errorf("Delete() = %d, want 2", deleted)
			}

			got, _ := s.Query(ctx, nil)
			if ids(got) != "d3" {
				t.Errorf("remaining = %s, want d3", ids(got))
			}
		})
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var wg sync.WaitGroup
			errs := make(chan error, 50)
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs <- s.Store(ctx, &decision.Decision{
						ID:           fmt.Sprintf("c%02d", i),
						MatchedRules: []string{"a"},
						Timestamp:    base.Add(time.Duration(i) * time.Second),
					})
				}(i)
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				if err != nil {
					t.Fatalf("Store() error = %v", err)
				}
			}
			if count, _ := s.Count(ctx, nil); count != 50 {
				t.Errorf("Count() = %d, want 50", count)
			}
		})
	}
}

func TestSQLiteStore_DuplicateID(t *testing.T) {
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "dup.db")
	s, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	d := testDecisions()[0]
	if err := s.Store(ctx, d); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	err = s.Store(ctx, d)
	var se *decision.StorageError
	if !errors.As(err, &se) || se.Operation != "store" {
		t.Errorf("second Store() error = %v, want storage error", err)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "reopen.db")

	s, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := s.Store(context.Background(), testDecisions()[0]); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()

	if count, _ := s.Count(context.Background(), nil); count != 1 {
		t.Errorf("Count() after reopen = %d, want 1", count)
	}
}

func TestNewSQLiteStore_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config *SQLiteConfig
		want   string
	}{
		{"empty path", &SQLiteConfig{Driver: DriverModernc}, "path cannot be empty"},
		{"unknown driver", &SQLiteConfig{Driver: "postgres", Path: "x.db"}, `unsupported driver "postgres"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSQLiteStore(tt.config)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestMemoryStore_CopiesOnWrite(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	d := testDecisions()[0]
	s.Store(ctx, d)
	d.MatchedRules[0] = "changed"

	got, _ := s.Query(ctx, nil)
	if got[0].MatchedRules[0] != "rain" {
		t.Error("stored decision shares caller's slice")
	}
}
