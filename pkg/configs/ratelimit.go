package configs

import (
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig HTTP 入口的令牌桶限流，只用于削峰.
// 创建 drop 的固定窗口配额见 DropConfig.Limiter.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"   rule:"gte=0"`
	Burst   int     `mapstructure:"burst" rule:"gte=0"`
	// Key 限流维度：global、ip（代理头中的客户端地址）或 header:Header-Name
	Key string `mapstructure:"key"`
	// IdleTTL 按 key 限流时，超过该时长未出现的 key 会被回收
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
	// Exempt 不参与限流的路径前缀
	Exempt []string `mapstructure:"exempt"`
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 50.0)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("rate_limit.key", "ip")
	v.SetDefault("rate_limit.idle_ttl", 10*time.Minute)
	v.SetDefault("rate_limit.exempt", []string{"/health"})
}
