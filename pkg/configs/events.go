package configs

import "github.com/spf13/viper"

// EventsConfig 控制生命周期事件发布的开关（全局与分主题）。
type EventsConfig struct {
	Enabled bool             `mapstructure:"enabled"` // 总开关
	Audit   bool             `mapstructure:"audit"`   // 进程内订阅全部事件并写入日志
	Drop    DropEventsConfig `mapstructure:"drop"`
	File    FileEventsConfig `mapstructure:"file"`
}

// DropEventsConfig 针对 QuickDrop 生命周期的事件开关。
type DropEventsConfig struct {
	Created   bool `mapstructure:"created"`
	Activated bool `mapstructure:"activated"`
	Consumed  bool `mapstructure:"consumed"`
	Expired   bool `mapstructure:"expired"`
	Reaped    bool `mapstructure:"reaped"`
}

// FileEventsConfig 针对目录文件的事件开关。
type FileEventsConfig struct {
	AutoDeleted bool `mapstructure:"auto_deleted"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("events.enabled", true)
	v.SetDefault("events.audit", false)

	v.SetDefault("events.drop.created", true)
	v.SetDefault("events.drop.activated", true)
	v.SetDefault("events.drop.consumed", true)
	v.SetDefault("events.drop.expired", true)
	// 清理事件量随过期数量增长，默认关闭
	v.SetDefault("events.drop.reaped", false)

	v.SetDefault("events.file.auto_deleted", true)
}
