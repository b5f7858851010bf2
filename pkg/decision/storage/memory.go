package storage

import (
	"context"
	"sort"
	"sync"

	"querydict-hq/querydict/pkg/decision"
	"querydict-hq/querydict/pkg/ruleset"
)

// MemoryStore implements decision.Store in memory. Contents are lost on
// Close.
type MemoryStore struct {
	decisions map[string]*decision.Decision
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		decisions: make(map[string]*decision.Decision),
	}
}

// Store persists a copy of d.
func (s *MemoryStore) Store(ctx context.Context, d *decision.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decisions[d.ID] = clone(d)
	return nil
}

// Query retrieves copies of the decisions matching the filters.
func (s *MemoryStore) Query(ctx context.Context, q *decision.Query) ([]*decision.Decision, error) {
	if q == nil {
		q = &decision.Query{}
	}

	s.mu.RLock()
	var results []*decision.Decision
	for _, d := range s.decisions {
		if q.Matches(d) {
			results = append(results, clone(d))
		}
	}
	s.mu.RUnlock()

	asc := q.Ascending()
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			if asc {
				return a.Timestamp.Before(b.Timestamp)
			}
			return a.Timestamp.After(b.Timestamp)
		}
		if asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	start := q.Offset
	if start > len(results) {
		return []*decision.Decision{}, nil
	}
	end := start + q.EffectiveLimit()
	if end > len(results) {
		end = len(results)
	}
	return results[start:end], nil
}

// Count returns the number of decisions matching the filters.
func (s *MemoryStore) Count(ctx context.Context, q *decision.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, d := range s.decisions {
		if q.Matches(d) {
			count++
		}
	}
	return count, nil
}

// Delete removes decisions matching the filters.
func (s *MemoryStore) Delete(ctx context.Context, q *decision.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, d := range s.decisions {
		if q.Matches(d) {
			delete(s.decisions, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close discards all decisions.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.decisions = make(map[string]*decision.Decision)
	return nil
}

func clone(d *decision.Decision) *decision.Decision {
	c := *d
	c.MatchedRules = append([]string(nil), d.MatchedRules...)
	if d.Errors != nil {
		c.Errors = append([]ruleset.RuleError(nil), d.Errors...)
	}
	return &c
}
