package queue

import "time"

// EventHeader 定义所有事件的通用头部元数据.
type EventHeader struct {
	// Topic 冗余记录消息主题，便于离线处理或转储后定位来源主题.
	Topic string `json:"topic"`
	// TraceID 分布式追踪 ID.
	TraceID string `json:"trace_id,omitempty"`
	// Producer 生产者服务名或节点标识.
	Producer string `json:"producer,omitempty"`
	// OccurredAt 事件发生时间（UTC，RFC3339）.
	OccurredAt time.Time `json:"occurred_at"`
	// Version 事件负载版本.
	Version string `json:"version,omitempty"`
}

// Message 是统一的消息封装，Header + Payload.
type Message[T any] struct {
	Header  EventHeader `json:"header"`
	Payload T           `json:"payload"`
}

// DropPayload QuickDrop 生命周期事件负载.
type DropPayload struct {
	// TokenPrefix token 前 8 个字符，完整 token 是访问凭证，不进入事件
	TokenPrefix string     `json:"token_prefix"`
	FileName    string     `json:"file_name,omitempty"`
	SizeBytes   int64      `json:"size_bytes,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	Status      string     `json:"status"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	// Reason 回收原因：expired / pending_timeout / consumed
	Reason string `json:"reason,omitempty"`
}

// FilePayload 目录文件事件负载.
type FilePayload struct {
	FileID    string `json:"file_id"`
	FileName  string `json:"file_name,omitempty"`
	SizeBytes int64  `json:"size_bytes,omitempty"`
	UpdatedBy string `json:"updated_by,omitempty"`
}

// TokenPrefix 截取 token 前缀用于日志和事件.
func TokenPrefix(token string) string {
	const n = 8
	if len(token) <= n {
		return token
	}

	return token[:n]
}
