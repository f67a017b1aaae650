package model

import "time"

// DropStatus QuickDrop 记录状态.
type DropStatus string

const (
	DropPending  DropStatus = "pending"
	DropActive   DropStatus = "active"
	DropConsumed DropStatus = "consumed"
	DropExpired  DropStatus = "expired"
)

// Drop 一次性分享记录，token 即访问凭证.
type Drop struct {
	Token       string     `gorm:"primaryKey;size:128"      json:"token"`
	FileName    string     `gorm:"size:255"                 json:"file_name"`
	SizeBytes   int64      `                                json:"size_bytes"`
	ContentType string     `gorm:"size:255"                 json:"content_type"`
	StoragePath string     `gorm:"size:512;uniqueIndex"     json:"storage_path"`
	Status      DropStatus `gorm:"size:16;index"            json:"status"`
	CreatedAt   time.Time  `gorm:"index"                    json:"created_at"`
	// pending 时为空，只在激活时设置一次
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at,omitempty"`
	ConsumedAt *time.Time `             json:"consumed_at,omitempty"`
}

func (Drop) TableName() string {
	return "quickdrop_drops"
}

// EffectiveStatus 返回在 now 时刻观察到的状态，active 且已过期视为 expired.
func (d *Drop) EffectiveStatus(now time.Time) DropStatus {
	if d.Status == DropExpired {
		return DropExpired
	}

	if d.Status == DropActive && d.ExpiresAt != nil && !d.ExpiresAt.After(now) {
		return DropExpired
	}

	return d.Status
}

// RemainingMs 返回剩余可消费毫秒数，终态或 pending 时为 0.
func (d *Drop) RemainingMs(now time.Time) int64 {
	if d.EffectiveStatus(now) != DropActive || d.ExpiresAt == nil {
		return 0
	}

	return max(0, d.ExpiresAt.Sub(now).Milliseconds())
}
