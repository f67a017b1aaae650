package configs

import (
	"github.com/spf13/viper"
)

// MetricsConfig Prometheus 指标配置.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoint 独立的指标监听地址，为空时挂载在业务端口上
	Endpoint       string            `mapstructure:"endpoint"`
	Path           string            `mapstructure:"path"            rule:"omitempty,startswith=/"`
	RuntimeMetrics bool              `mapstructure:"runtime_metrics"` // Go 运行时与进程指标
	Labels         map[string]string `mapstructure:"labels"`          // 附加在业务指标上的常量标签
	Pprof          bool              `mapstructure:"pprof"`           // 在指标监听上暴露 /debug/pprof
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.endpoint", ":9090")
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
	v.SetDefault("metrics.labels", map[string]string{
		"service": "quickdrop",
		"version": AppVersion,
	})
}
