// Package queue 定义 QuickDrop 生命周期事件：主题、负载、信封编码，以及按配置开关发布事件的 Emitter.
//
// 每条 watermill 消息的 payload 是 JSON 信封:
//
//	{"header": {"topic": "quickdrop.drop.consumed", "producer": "quickdrop", "occurred_at": "...", "version": "v1"},
//	 "payload": {...}}
//
// header 中的字段同时写入消息元数据，消费者不解码 payload 也能路由.
// 事件中不出现完整 token，只保留前缀.
package queue

import (
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/bytedance/sonic"
)

// PayloadVersionV1 当前信封版本，消费者应忽略未知字段.
const PayloadVersionV1 = "v1"

// HeaderOption 修改事件头.
type HeaderOption func(*EventHeader)

func WithTraceID(id string) HeaderOption { return func(h *EventHeader) { h.TraceID = id } }

func WithProducer(p string) HeaderOption { return func(h *EventHeader) { h.Producer = p } }

// Decode 解码信封.
func Decode[T any](b []byte) (Message[T], error) {
	var m Message[T]

	err := sonic.Unmarshal(b, &m)

	return m, err
}

// NewWatermillMessage 把负载装进信封并生成带元数据的 watermill 消息.
func NewWatermillMessage[T any](topic string, payload T, opts ...HeaderOption) (*message.Message, error) {
	h := EventHeader{Topic: topic, OccurredAt: time.Now().UTC(), Version: PayloadVersionV1}
	for _, opt := range opts {
		opt(&h)
	}

	data, err := sonic.Marshal(Message[T]{Header: h, Payload: payload})
	if err != nil {
		return nil, err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)

	meta := map[string]string{
		"topic":       h.Topic,
		"trace_id":    h.TraceID,
		"producer":    h.Producer,
		"occurred_at": h.OccurredAt.Format(time.RFC3339Nano),
		"version":     h.Version,
	}
	for k, v := range meta {
		if v != "" {
			msg.Metadata.Set(k, v)
		}
	}

	return msg, nil
}
