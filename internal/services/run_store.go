package services

import (
	"fmt"
	"sync"
	"time"

	"feeddiff/internal/compare"
	"feeddiff/internal/feed"
)

// Run is a completed comparison of two feeds. Result and the load reports
// are never modified once the run is stored.
type Run struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Duration  time.Duration    `json:"duration_ns"`
	Feed1     *feed.LoadReport `json:"feed1"`
	Feed2     *feed.LoadReport `json:"feed2"`
	Result    *compare.Result  `json:"result"`
}

// RunSummary is the list view of a run
type RunSummary struct {
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	Feed1Source    string          `json:"feed1_source"`
	Feed2Source    string          `json:"feed2_source"`
	Summary        compare.Summary `json:"summary"`
	HasDifferences bool            `json:"has_differences"`
}

// Summarize returns the list view of r
func (r *Run) Summarize() RunSummary {
	s := RunSummary{ID: r.ID, CreatedAt: r.CreatedAt}
	if r.Feed1 != nil {
		s.Feed1Source = r.Feed1.Source
	}
	if r.Feed2 != nil {
		s.Feed2Source = r.Feed2.Source
	}
	if r.Result != nil {
		s.Summary = r.Result.Summary
		s.HasDifferences = r.Result.HasDifferences()
	}
	return s
}

// RunFilter narrows a run listing
type RunFilter struct {
	Since         time.Time
	OnlyDifferent bool
	Limit         int
}

// RunStore persists completed runs
type RunStore interface {
	Save(run *Run) error
	Get(id string) (*Run, error)
	List(filter RunFilter) []RunSummary
	Delete(id string) error
	Count() int
}

// MemoryRunStore is an in-memory RunStore holding at most capacity runs.
// When full, the oldest run is evicted.
type MemoryRunStore struct {
	mu       sync.RWMutex
	runs     map[string]*Run
	order    []string
	capacity int
}

// NewMemoryRunStore creates a new in-memory run store. A capacity below one
// means unbounded.
func NewMemoryRunStore(capacity int) *MemoryRunStore {
	return &MemoryRunStore{
		runs:     make(map[string]*Run),
		capacity: capacity,
	}
}

// Save stores a run
func (s *MemoryRunStore) Save(run *Run) error {
	if run == nil || run.ID == "" {
		return ErrInvalidRun
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return fmt.Errorf("%w: %s", ErrRunExists, run.ID)
	}

	if s.capacity > 0 {
		for len(s.order) >= s.capacity {
			delete(s.runs, s.order[0])
			s.order = s.order[1:]
		}
	}

	runCopy := *run
	s.runs[run.ID] = &runCopy
	s.order = append(s.order, run.ID)
	return nil
}

// Get retrieves a run by ID
func (s *MemoryRunStore) Get(id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.runs[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	// Return a copy to prevent external modification
	runCopy := *run
	return &runCopy, nil
}

// List returns run summaries, most recently saved first
func (s *MemoryRunStore) List(filter RunFilter) []RunSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]RunSummary, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		run := s.runs[s.order[i]]

		if !filter.Since.IsZero() && run.CreatedAt.Before(filter.Since) {
			continue
		}
		summary := run.Summarize()
		if filter.OnlyDifferent && !summary.HasDifferences {
			continue
		}

		result = append(result, summary)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result
}

// Delete removes a run from the store
func (s *MemoryRunStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[id]; !exists {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	delete(s.runs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of stored runs
func (s *MemoryRunStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.runs)
}
