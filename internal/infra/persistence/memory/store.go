// Package memory provides an in-memory run store used for tests, ephemeral
// environments, and as the read index of the durable stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"spreadsim/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.RunStore = (*Store)(nil)

// Snapshot is the serialisable state of a store.
type Snapshot struct {
	Runs []domain.Run `json:"runs"`
}

// Store keeps runs in a map guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	runs map[string]domain.Run
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{runs: make(map[string]domain.Run)}
}

// SaveRun inserts or replaces a run.
func (s *Store) SaveRun(_ context.Context, run domain.Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id required")
	}
	s.mu.Lock()
	s.runs[run.ID] = run.Clone()
	s.mu.Unlock()
	return nil
}

// GetRun returns a copy of the run with id.
func (s *Store) GetRun(id string) (domain.Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return domain.Run{}, false
	}
	return run.Clone(), true
}

// ListRuns returns copies of every run, newest first.
func (s *Store) ListRuns() []domain.Run {
	s.mu.RLock()
	out := make([]domain.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, run.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

// DeleteRun removes a run, returning domain.ErrRunNotFound when absent.
func (s *Store) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, domain.ErrRunNotFound)
	}
	delete(s.runs, id)
	return nil
}

// Has reports whether id is stored.
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.runs[id]
	return ok
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ExportState returns a deep copy of the store contents.
func (s *Store) ExportState() Snapshot {
	return Snapshot{Runs: s.ListRuns()}
}

// ImportState replaces the store contents with snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	runs := make(map[string]domain.Run, len(snapshot.Runs))
	for _, run := range snapshot.Runs {
		if run.ID == "" {
			continue
		}
		runs[run.ID] = run.Clone()
	}
	s.mu.Lock()
	s.runs = runs
	s.mu.Unlock()
}
