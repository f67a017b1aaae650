// Package cache 在 kv.Store 之上提供带命名空间的泛型 JSON 缓存，以及消费后的 tombstone 记录.
//
//	c := cache.NewCache(kvClient, cache.WithPrefix("quickdrop:"))
//	_ = cache.Set(ctx, c, "k", v, time.Minute)
//	v, err := cache.Get[T](ctx, c, "k")
//	if errors.Is(err, cache.ErrMiss) { ... }
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/quickdrop/pkg/internal/storage/kv"
)

// ErrMiss 缓存未命中.
var ErrMiss = errors.New("cache: miss")

type Cache struct {
	store  kv.Store
	prefix string
}

type Option func(*Cache)

// WithPrefix 所有键加上前缀，多个用途可以共用一个 KV 后端.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

func NewCache(store kv.Store, opts ...Option) *Cache {
	c := &Cache{store: store}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get 未命中时返回 ErrMiss.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var v T

	data, err := c.store.Get(ctx, c.prefix+key)

	switch {
	case errors.Is(err, kv.ErrKeyNotFound):
		return v, ErrMiss
	case err != nil:
		return v, err
	}

	if err := sonic.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode cached %s: %w", key, err)
	}

	return v, nil
}

// Set ttl<=0 表示不过期.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached %s: %w", key, err)
	}

	return c.store.Set(ctx, c.prefix+key, data, ttl)
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, c.prefix+key)
}
