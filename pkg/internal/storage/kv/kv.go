// Package kv 键值存储的统一接口与 memory、redis、nats、groupcache 四种实现.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yeisme/quickdrop/pkg/configs"
)

// ErrKeyNotFound 键不存在或已过期.
var ErrKeyNotFound = errors.New("kv: key not found")

// Store 键值存储. 实现必须并发安全.
type Store interface {
	// Get 键不存在或已过期时返回包装了 ErrKeyNotFound 的错误.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set ttl<=0 表示不过期.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Keys 返回匹配 glob 的未过期键，pattern 为空时返回全部.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// Type 存储类型.
type Type string

const (
	TypeMemory     Type = "memory"
	TypeRedis      Type = "redis"
	TypeNATS       Type = "nats"
	TypeGroupcache Type = "groupcache"
)

// Factory 从完整的 KV 配置中取出自己需要的部分创建 Store.
type Factory func(ctx context.Context, cfg configs.KVConfig) (Store, error)

var factories = map[Type]Factory{}

func register(t Type, f Factory) {
	factories[t] = f
}

// GetRegisteredKVTypes 返回编译进来的存储类型.
func GetRegisteredKVTypes() []Type {
	types := make([]Type, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	return types
}

// Client 带类型信息与健康检查的 Store.
type Client struct {
	Store

	kind Type
}

// New 按 kv.type 创建客户端.
func New(ctx context.Context, cfg configs.KVConfig) (*Client, error) {
	kind := Type(cfg.Type)

	factory, ok := factories[kind]
	if !ok {
		return nil, fmt.Errorf("unsupported kv type: %s", cfg.Type)
	}

	store, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init kv (%s): %w", kind, err)
	}

	return &Client{Store: store, kind: kind}, nil
}

func (c *Client) Type() Type {
	return c.kind
}

// HealthCheck 写入并读回探测键.
func (c *Client) HealthCheck(ctx context.Context) error {
	const key = "quickdrop.health"

	if err := c.Set(ctx, key, []byte{1}, time.Minute); err != nil {
		return err
	}

	_, err := c.Get(ctx, key)

	return err
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}
