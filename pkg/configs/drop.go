package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultDropMaxSizeBytes  = 25 * 1024 * 1024 // 单个 QuickDrop 的最大字节数（25 MiB）
	DefaultDropActiveTTL     = time.Minute      // 激活后可被消费的窗口
	DefaultDropPendingTTL    = 10 * time.Minute // 未激活记录的最长保留时间
	DefaultDropGrace         = 15 * time.Second // 过期后到可回收之间的宽限期
	DefaultDropConsumedGrace = 10 * time.Minute // 消费后到可回收之间的时长，需覆盖一次完整的下载
	DefaultDropReaperBatch   = 10               // 每批回收的记录数
	DefaultDropTokenAttempts = 5                // token 冲突时的最大重试次数
	DefaultDropTombstoneTTL  = 5 * time.Minute  // 消费后 consumed 视图的保留时间
	DefaultLimiterWindow     = time.Minute      // 创建限流窗口
	DefaultLimiterMax        = 5                // 每个窗口允许的创建次数
)

type (
	// DropConfig QuickDrop 生命周期配置.
	DropConfig struct {
		MaxSizeBytes  int64         `mapstructure:"max_size_bytes" rule:"min=1"`
		ActiveTTL     time.Duration `mapstructure:"active_ttl"     rule:"min=1s"`
		PendingTTL    time.Duration `mapstructure:"pending_ttl"    rule:"min=1s"`
		Grace         time.Duration `mapstructure:"grace"          rule:"min=0"`
		ConsumedGrace time.Duration `mapstructure:"consumed_grace" rule:"min=1m"`
		ReaperBatch   int           `mapstructure:"reaper_batch"   rule:"min=1,max=1000"`
		TokenAttempts int           `mapstructure:"token_attempts" rule:"min=1,max=20"`
		LazyGC        bool          `mapstructure:"lazy_gc"`
		TombstoneTTL  time.Duration `mapstructure:"tombstone_ttl"  rule:"min=0"`
		SharePrefix   string        `mapstructure:"share_prefix"   rule:"required"`
		Limiter       LimiterConfig `mapstructure:"limiter"`
	}

	// LimiterConfig 创建请求的固定窗口限流配置.
	LimiterConfig struct {
		Enabled  bool          `mapstructure:"enabled"`
		Backend  string        `mapstructure:"backend"   rule:"oneof=db redis memory"`
		Window   time.Duration `mapstructure:"window"    rule:"min=1s"`
		Max      int           `mapstructure:"max"       rule:"min=1"`
		FailOpen bool          `mapstructure:"fail_open"`
	}
)

func (c *DropConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("drop.max_size_bytes", DefaultDropMaxSizeBytes)
	v.SetDefault("drop.active_ttl", DefaultDropActiveTTL)
	v.SetDefault("drop.pending_ttl", DefaultDropPendingTTL)
	v.SetDefault("drop.grace", DefaultDropGrace)
	v.SetDefault("drop.consumed_grace", DefaultDropConsumedGrace)
	v.SetDefault("drop.reaper_batch", DefaultDropReaperBatch)
	v.SetDefault("drop.token_attempts", DefaultDropTokenAttempts)
	v.SetDefault("drop.lazy_gc", true)
	v.SetDefault("drop.tombstone_ttl", DefaultDropTombstoneTTL)
	v.SetDefault("drop.share_prefix", "/quickdrop/")

	v.SetDefault("drop.limiter.enabled", true)
	v.SetDefault("drop.limiter.backend", "db")
	v.SetDefault("drop.limiter.window", DefaultLimiterWindow)
	v.SetDefault("drop.limiter.max", DefaultLimiterMax)
	v.SetDefault("drop.limiter.fail_open", true)
}
