package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CircuitBreakerConfig 熔断器配置，对象存储始终受其保护，HTTP 为可选的接口级熔断.
type CircuitBreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	HTTP        bool          `mapstructure:"http"`                                 // 同时为 API 路由组挂载熔断
	FailureRate float64       `mapstructure:"failure_rate"  rule:"gte=0,lte=1"`     // 统计周期内失败比例阈值
	MinRequests uint32        `mapstructure:"min_requests"`                         // 进入统计的最小请求数
	Interval    time.Duration `mapstructure:"interval"`                             // 关闭状态下计数清零的周期
	OpenTimeout time.Duration `mapstructure:"open_timeout"`                         // 打开状态持续时间，之后半开
	HalfOpenMax uint32        `mapstructure:"half_open_max" rule:"omitempty,min=1"` // 半开状态允许通过的请求数
}

// ShouldTrip 判断一个统计周期内的计数是否应当打开熔断.
func (c CircuitBreakerConfig) ShouldTrip(requests, failures uint32) bool {
	if requests == 0 || requests < c.MinRequests {
		return false
	}

	return float64(failures)/float64(requests) >= c.FailureRate
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("circuit_breaker.enabled", false)
	v.SetDefault("circuit_breaker.http", false)
	v.SetDefault("circuit_breaker.failure_rate", 0.5)
	v.SetDefault("circuit_breaker.min_requests", 20)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.open_timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.half_open_max", 5)
}
