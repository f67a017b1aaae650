package configs

import (
	"time"

	"github.com/spf13/viper"
)

// KVConfig 键值存储，保存消费后的 tombstone 等短期数据.
type KVConfig struct {
	Type string `mapstructure:"type" rule:"oneof=memory redis nats groupcache"`
	// Timeout 单次远程操作的超时，memory 与 groupcache 不使用
	Timeout    time.Duration      `mapstructure:"timeout" rule:"gte=0"`
	Redis      RedisKVConfig      `mapstructure:"redis"`
	NATS       NATSKVConfig       `mapstructure:"nats"`
	Groupcache GroupcacheKVConfig `mapstructure:"groupcache"`
}

// RedisKVConfig 同时被 ratelimit 的 redis 计数器复用.
type RedisKVConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"        rule:"min=0,max=15"`
	PoolSize int    `mapstructure:"pool_size" rule:"gte=0"`
}

type NATSKVConfig struct {
	URL      string `mapstructure:"url"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Bucket   string `mapstructure:"bucket"   rule:"required"`
	// History 每个键保留的历史版本数
	History uint8 `mapstructure:"history" rule:"min=1,max=64"`
	// MaxAge bucket 级别的过期时间，0 表示不过期
	MaxAge time.Duration `mapstructure:"max_age" rule:"gte=0"`
}

// GroupcacheKVConfig peers 为空时只在本进程内缓存.
type GroupcacheKVConfig struct {
	Name       string   `mapstructure:"name"        rule:"required"`
	CacheBytes int64    `mapstructure:"cache_bytes" rule:"min=0"`
	Peers      []string `mapstructure:"peers"`
	Self       string   `mapstructure:"self"        rule:"omitempty,url"`
}

func (c *KVConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("kv.type", "memory")
	v.SetDefault("kv.timeout", 2*time.Second)

	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.password", "")
	v.SetDefault("kv.redis.db", 0)
	v.SetDefault("kv.redis.pool_size", 10)

	v.SetDefault("kv.nats.url", "nats://localhost:4222")
	v.SetDefault("kv.nats.user", "")
	v.SetDefault("kv.nats.password", "")
	v.SetDefault("kv.nats.bucket", "quickdrop-kv")
	v.SetDefault("kv.nats.history", 1)
	v.SetDefault("kv.nats.max_age", time.Hour)

	v.SetDefault("kv.groupcache.name", "quickdrop-tombstones")
	v.SetDefault("kv.groupcache.cache_bytes", 64<<20)
	v.SetDefault("kv.groupcache.peers", []string{})
	v.SetDefault("kv.groupcache.self", "http://localhost:8080")
}
