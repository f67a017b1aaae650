package model

import "time"

// RateLimitWindow 固定窗口计数，Key 为规范化主体的 sha256.
type RateLimitWindow struct {
	Key         string    `gorm:"column:window_key;primaryKey;size:64"`
	WindowStart time.Time `gorm:"index"`
	Count       int
}

func (RateLimitWindow) TableName() string {
	return "quickdrop_rate_limits"
}
