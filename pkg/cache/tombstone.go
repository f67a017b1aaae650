package cache

import (
	"context"
	"errors"
	"time"
)

// Tombstone 已被消费的 QuickDrop 的短期视图.
type Tombstone struct {
	FileName   string    `json:"file_name"`
	SizeBytes  int64     `json:"size_bytes"`
	ConsumedAt time.Time `json:"consumed_at"`
}

// Tombstones 记录消费后的视图，记录删除后状态查询仍可返回 consumed.
type Tombstones struct {
	c   *Cache
	ttl time.Duration
}

// NewTombstones 创建 tombstone 存储，ttl<=0 时 Mark 不做任何事.
func NewTombstones(c *Cache, ttl time.Duration) *Tombstones {
	return &Tombstones{c: c, ttl: ttl}
}

// Mark 写入 tombstone.
func (t *Tombstones) Mark(ctx context.Context, token string, ts Tombstone) error {
	if t == nil || t.ttl <= 0 {
		return nil
	}

	return Set(ctx, t.c, "tombstone:"+token, ts, t.ttl)
}

// Lookup 查询 tombstone，不存在时 ok 为 false.
func (t *Tombstones) Lookup(ctx context.Context, token string) (Tombstone, bool, error) {
	if t == nil {
		return Tombstone{}, false, nil
	}

	ts, err := Get[Tombstone](ctx, t.c, "tombstone:"+token)
	if errors.Is(err, ErrMiss) {
		return Tombstone{}, false, nil
	}

	if err != nil {
		return Tombstone{}, false, err
	}

	return ts, true, nil
}
