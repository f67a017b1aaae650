package configs

import (
	"time"

	"github.com/spf13/viper"
)

// TracingConfig OpenTelemetry 追踪配置.
type TracingConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	// Exporter 导出器：otlp-http、otlp-grpc、zipkin
	Exporter   string  `mapstructure:"exporter"    rule:"omitempty,oneof=otlp-http otlp-grpc zipkin"`
	Endpoint   string  `mapstructure:"endpoint"`
	Insecure   bool    `mapstructure:"insecure"` // otlp-grpc 不使用 TLS
	SampleRate float64 `mapstructure:"sample_rate" rule:"gte=0,lte=1"`
	// 批量导出参数
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	MaxBatchSize int           `mapstructure:"max_batch_size" rule:"gte=0"`
	MaxQueueSize int           `mapstructure:"max_queue_size" rule:"gte=0"`
	// Attributes 附加的资源属性，例如 deployment.environment
	Attributes map[string]string `mapstructure:"attributes"`
}

func (c *TracingConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "quickdrop")
	v.SetDefault("tracing.service_version", AppVersion)
	v.SetDefault("tracing.exporter", "otlp-http")
	v.SetDefault("tracing.endpoint", "http://localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.batch_timeout", 5*time.Second)
	v.SetDefault("tracing.max_batch_size", 512)
	v.SetDefault("tracing.max_queue_size", 2048)
	v.SetDefault("tracing.attributes", map[string]string{})
}
