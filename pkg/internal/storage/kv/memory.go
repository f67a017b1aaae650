package kv

import (
	"context"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/yeisme/quickdrop/pkg/configs"
)

type memEntry struct {
	value   []byte
	expires time.Time // 零值表示不过期
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// MemoryKV 进程内实现，过期键在访问时删除.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string]memEntry
	now  func() time.Time
}

// NewMemoryKV 创建内存存储.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]memEntry), now: time.Now}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.data[key]
	if !ok {
		return nil, notFound(key)
	}

	if e.expired(m.now()) {
		delete(m.data, key)

		return nil, notFound(key)
	}

	return slices.Clone(e.value), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := memEntry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()

	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()

	return nil
}

// Keys 同时清理已过期的键.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	keys := make([]string, 0, len(m.data))

	for k, e := range m.data {
		if e.expired(now) {
			delete(m.data, k)

			continue
		}

		if match(pattern, k) {
			keys = append(keys, k)
		}
	}

	slices.Sort(keys)

	return keys, nil
}

func (m *MemoryKV) Close() error { return nil }

func match(pattern, key string) bool {
	if pattern == "" {
		return true
	}

	ok, _ := path.Match(pattern, key)

	return ok
}

func init() {
	register(TypeMemory, func(context.Context, configs.KVConfig) (Store, error) {
		return NewMemoryKV(), nil
	})
}
