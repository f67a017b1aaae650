package configs

import (
	"time"

	"github.com/spf13/viper"
)

// SchedulerConfig 后台任务配置.
type SchedulerConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ReaperInterval time.Duration `mapstructure:"reaper_interval" rule:"min=1s"`
	RunOnStart     bool          `mapstructure:"run_on_start"`
}

func (c *SchedulerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.reaper_interval", "30s")
	v.SetDefault("scheduler.run_on_start", true)
}
