package kv

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/quickdrop/pkg/configs"
)

// GroupcacheKV 本地 map 是数据源，读取经过 groupcache 组以便多副本间共享.
// groupcache 没有失效机制，键写入后不应再覆盖. 未配置 peers 时先检查本地存在性，
// 因此 Delete 立即生效.
type GroupcacheKV struct {
	group *groupcache.Group
	pool  *groupcache.HTTPPool

	mu    sync.RWMutex
	local map[string][]byte
	now   func() time.Time
}

func newGroupcacheKV(_ context.Context, cfg configs.KVConfig) (Store, error) {
	gc := cfg.Groupcache
	if groupcache.GetGroup(gc.Name) != nil {
		return nil, fmt.Errorf("groupcache group %q already registered in this process", gc.Name)
	}

	g := &GroupcacheKV{local: make(map[string][]byte), now: time.Now}

	g.group = groupcache.NewGroup(gc.Name, gc.CacheBytes, groupcache.GetterFunc(
		func(_ context.Context, key string, dest groupcache.Sink) error {
			g.mu.RLock()
			v, ok := g.local[key]
			g.mu.RUnlock()

			if !ok {
				return notFound(key)
			}

			return dest.SetBytes(v)
		}))

	if len(gc.Peers) > 0 {
		g.pool = groupcache.NewHTTPPoolOpts(gc.Self, nil)
		g.pool.Set(gc.Peers...)
	}

	return g, nil
}

// NewGroupcacheKV 只在本进程内缓存的实例，name 在进程内必须唯一.
func NewGroupcacheKV(name string, cacheBytes int64) (Store, error) {
	var cfg configs.KVConfig

	cfg.Groupcache.Name = name
	cfg.Groupcache.CacheBytes = cacheBytes

	return newGroupcacheKV(context.Background(), cfg)
}

func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	g.mu.RLock()
	_, ok := g.local[key]
	g.mu.RUnlock()

	if !ok && g.pool == nil {
		return nil, notFound(key)
	}

	var raw []byte
	if err := g.group.Get(ctx, key, groupcache.AllocatingByteSliceSink(&raw)); err != nil {
		return nil, fmt.Errorf("groupcache get %s: %w", key, err)
	}

	value, expired := unseal(raw, g.now())
	if expired {
		_ = g.Delete(ctx, key)

		return nil, notFound(key)
	}

	return value, nil
}

func (g *GroupcacheKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	sealed := seal(slices.Clone(value), ttl, g.now())

	g.mu.Lock()
	g.local[key] = sealed
	g.mu.Unlock()

	return nil
}

func (g *GroupcacheKV) Delete(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.local, key)
	g.mu.Unlock()

	return nil
}

// Keys 只列出本地键.
func (g *GroupcacheKV) Keys(_ context.Context, pattern string) ([]string, error) {
	now := g.now()

	g.mu.RLock()
	defer g.mu.RUnlock()

	keys := make([]string, 0, len(g.local))

	for k, v := range g.local {
		if _, expired := unseal(v, now); !expired && match(pattern, k) {
			keys = append(keys, k)
		}
	}

	slices.Sort(keys)

	return keys, nil
}

func (g *GroupcacheKV) Close() error { return nil }

func init() {
	register(TypeGroupcache, newGroupcacheKV)
}
