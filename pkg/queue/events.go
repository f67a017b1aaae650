package queue

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/quickdrop/pkg/configs"
	nlog "github.com/yeisme/quickdrop/pkg/log"
)

// Publisher 发布消息的最小接口，mq.Client 满足该接口.
type Publisher interface {
	Publish(ctx context.Context, topic string, msgs ...*message.Message) error
}

// Emitter 按配置开关发布生命周期事件，发布失败只记录日志.
type Emitter struct {
	pub     Publisher
	cfg     configs.EventsConfig
	enabled map[string]bool
}

// NewEmitter 创建事件发布器，pub 为 nil 时所有事件被忽略.
func NewEmitter(pub Publisher, cfg configs.EventsConfig) *Emitter {
	return &Emitter{
		pub: pub,
		cfg: cfg,
		enabled: map[string]bool{
			TopicDropCreated:     cfg.Drop.Created,
			TopicDropActivated:   cfg.Drop.Activated,
			TopicDropConsumed:    cfg.Drop.Consumed,
			TopicDropExpired:     cfg.Drop.Expired,
			TopicDropReaped:      cfg.Drop.Reaped,
			TopicFileAutoDeleted: cfg.File.AutoDeleted,
		},
	}
}

// Enabled 报告主题是否需要发布.
func (e *Emitter) Enabled(topic string) bool {
	if e == nil || e.pub == nil || !e.cfg.Enabled {
		return false
	}

	return e.enabled[topic]
}

// EmitDrop 发布 QuickDrop 事件.
func (e *Emitter) EmitDrop(ctx context.Context, topic string, payload DropPayload) {
	emit(ctx, e, topic, payload)
}

// EmitFile 发布目录文件事件.
func (e *Emitter) EmitFile(ctx context.Context, topic string, payload FilePayload) {
	emit(ctx, e, topic, payload)
}

func emit[T any](ctx context.Context, e *Emitter, topic string, payload T) {
	if !e.Enabled(topic) {
		return
	}

	opts := []HeaderOption{WithProducer("quickdrop")}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, WithTraceID(sc.TraceID().String()))
	}

	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err == nil {
		err = e.pub.Publish(ctx, topic, msg)
	}

	if err != nil {
		l := nlog.Component("events")
		l.Warn().Err(err).Str("topic", topic).Msg("emit event failed")
	}
}
