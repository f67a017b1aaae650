package ratelimit

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yeisme/quickdrop/pkg/configs"
)

// NewStoreFromConfig 按 backend 创建计数存储，返回的 close 用于释放 Redis 连接.
func NewStoreFromConfig(cfg configs.LimiterConfig, db *gorm.DB, rcfg configs.RedisKVConfig) (CounterStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), noop, nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     rcfg.Addr,
			Password: rcfg.Password,
			DB:       rcfg.DB,
			PoolSize: rcfg.PoolSize,
		})

		return NewRedisStore(rdb), rdb.Close, nil
	case "db", "":
		if db == nil {
			return nil, nil, fmt.Errorf("rate limiter backend db requires a database")
		}

		return NewGormStore(db), noop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported rate limiter backend: %s", cfg.Backend)
	}
}
