package drop

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/types"
)

const memoryShards = 16

type memoryShard struct {
	mu    sync.Mutex
	drops map[string]model.Drop
}

// MemoryStore 进程内记录存储，按 token 的 xxhash 分片加锁.
type MemoryStore struct {
	shards [memoryShards]*memoryShard
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	for i := range s.shards {
		s.shards[i] = &memoryShard{drops: make(map[string]model.Drop)}
	}

	return s
}

func (s *MemoryStore) shard(token string) *memoryShard {
	return s.shards[xxhash.Sum64String(token)%memoryShards]
}

func (s *MemoryStore) Get(ctx context.Context, token string) (*model.Drop, error) {
	sh := s.shard(token)

	sh.mu.Lock()
	d, ok := sh.drops[token]
	sh.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("drop %s: %w", tokenLabel(token), types.ErrNotFound)
	}

	return cloneDrop(d), nil
}

func (s *MemoryStore) Insert(ctx context.Context, d *model.Drop) error {
	sh := s.shard(d.Token)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.drops[d.Token]; ok {
		return ErrDuplicate
	}

	sh.drops[d.Token] = *cloneDrop(*d)

	return nil
}

func (s *MemoryStore) Update(ctx context.Context, token string, fn Mutator) (*model.Drop, error) {
	sh := s.shard(token)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	cur, ok := sh.drops[token]
	if !ok {
		return nil, fmt.Errorf("drop %s: %w", tokenLabel(token), types.ErrNotFound)
	}

	d := cloneDrop(cur)

	changed, err := fn(d)
	if changed {
		sh.drops[token] = *cloneDrop(*d)
	}

	return d, err
}

func (s *MemoryStore) Delete(ctx context.Context, token string) error {
	sh := s.shard(token)

	sh.mu.Lock()
	delete(sh.drops, token)
	sh.mu.Unlock()

	return nil
}

func (s *MemoryStore) ListReclaimable(ctx context.Context, c Cutoffs, limit int) ([]model.Drop, error) {
	var out []model.Drop

	for _, sh := range s.shards {
		sh.mu.Lock()

		for _, d := range sh.drops {
			if c.Match(&d) {
				out = append(out, *cloneDrop(d))
			}
		}

		sh.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

// Len 返回记录总数.
func (s *MemoryStore) Len() int {
	n := 0

	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.drops)
		sh.mu.Unlock()
	}

	return n
}

func cloneDrop(d model.Drop) *model.Drop {
	if d.ExpiresAt != nil {
		t := *d.ExpiresAt
		d.ExpiresAt = &t
	}

	if d.ConsumedAt != nil {
		t := *d.ConsumedAt
		d.ConsumedAt = &t
	}

	return &d
}

// tokenLabel 日志与错误中只出现 token 前缀.
func tokenLabel(token string) string {
	const n = 8
	if len(token) <= n {
		return token
	}

	return token[:n] + "…"
}
