package configs

import (
	"github.com/spf13/viper"
)

// LogConfig 日志相关配置.
type LogConfig struct {
	Level  string `mapstructure:"level"  rule:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	Format string `mapstructure:"format" rule:"omitempty,oneof=console json"` // 标准错误输出的格式
	// File 轮转文件输出，始终为 JSON 行
	File LogFileConfig `mapstructure:"file"`
}

// LogFileConfig lumberjack 轮转参数.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"        rule:"required_if=Enabled true"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" rule:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" rule:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" rule:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "logs/quickdrop.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.max_age_days", 28)
	v.SetDefault("log.file.compress", true)
}
