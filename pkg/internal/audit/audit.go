// Package audit 订阅生命周期事件并写入审计日志.
package audit

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	mqc "github.com/yeisme/quickdrop/pkg/internal/storage/mq"
	"github.com/yeisme/quickdrop/pkg/log"
	"github.com/yeisme/quickdrop/pkg/queue"
)

// Subscriber 审计订阅者，每个主题一个 watermill handler.
type Subscriber struct {
	router  *message.Router
	handled atomic.Int64
}

// New 为给定主题注册审计 handler.
func New(client *mqc.Client, topics []string) (*Subscriber, error) {
	if client == nil {
		return nil, errors.New("mq client is nil")
	}

	router, err := client.NewRouter()
	if err != nil {
		return nil, err
	}

	router.AddMiddleware(middleware.Recoverer)

	s := &Subscriber{router: router}
	for _, topic := range topics {
		router.AddNoPublisherHandler("audit."+topic, topic, client.Subscriber(), s.handle)
	}

	return s, nil
}

// Run 阻塞运行直到 ctx 结束.
func (s *Subscriber) Run(ctx context.Context) error {
	if err := s.router.Run(ctx); err != nil {
		return fmt.Errorf("audit router: %w", err)
	}

	return nil
}

// Running 在所有 handler 启动后关闭.
func (s *Subscriber) Running() <-chan struct{} {
	return s.router.Running()
}

// Close 停止 router.
func (s *Subscriber) Close() error {
	return s.router.Close()
}

// Handled 已处理的事件数.
func (s *Subscriber) Handled() int64 {
	return s.handled.Load()
}

func (s *Subscriber) handle(msg *message.Message) error {
	defer s.handled.Add(1)

	l := log.Component("audit")

	ev, err := queue.Decode[map[string]any](msg.Payload)
	if err != nil {
		// 无法解析的消息直接确认
		l.Warn().Err(err).Str("uuid", msg.UUID).Msg("undecodable audit event")

		return nil
	}

	e := l.Info().
		Str("topic", ev.Header.Topic).
		Time("occurred_at", ev.Header.OccurredAt).
		Interface("payload", ev.Payload)

	if ev.Header.TraceID != "" {
		e = e.Str("trace_id", ev.Header.TraceID)
	}

	e.Msg("audit event")

	return nil
}
