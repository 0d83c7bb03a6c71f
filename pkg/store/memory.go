package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in memory. It backs tests and cold runs
// where no database path is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    []DecisionEngineRun
	jobs    []JobExecution
	configs map[string]ConfigRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]ConfigRecord)}
}

func (s *MemoryStore) CreateRun(ctx context.Context, run DecisionEngineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return nil
}

func (s *MemoryStore) FindRuns(ctx context.Context, filter RunFilter) ([]DecisionEngineRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []DecisionEngineRun
	for _, r := range s.runs {
		if r.Validated != filter.Validated {
			continue
		}
		if filter.ConfigVersion > 0 && r.ConfigVersion != filter.ConfigVersion {
			continue
		}
		if !filter.Since.IsZero() && r.Timestamp.Before(filter.Since) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) CreateJobExecution(ctx context.Context, exec JobExecution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, exec)
	return nil
}

func (s *MemoryStore) RecentJobExecutions(ctx context.Context, limit int) ([]JobExecution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobExecution, len(s.jobs))
	copy(out, s.jobs)
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetConfig(ctx context.Context, key string) (ConfigRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.configs[key]
	if !ok {
		return ConfigRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) SetConfig(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[key] = ConfigRecord{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
