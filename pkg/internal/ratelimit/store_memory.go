package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryWindow struct {
	start time.Time
	count int
}

// MemoryStore 进程内计数，仅适用于单实例部署.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]memoryWindow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]memoryWindow)}
}

func (s *MemoryStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]

	d, write := decide(w.start, w.count, ok, now, window, limit)
	if write {
		s.windows[key] = memoryWindow{start: d.WindowStart, count: d.Count}
	}

	return d, nil
}
