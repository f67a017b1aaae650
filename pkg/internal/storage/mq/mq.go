// Package mq 提供基于 Watermill 库的统一消息队列操作接口。
// 支持发布/订阅模式，并通过工厂模式抽象不同的 MQ 实现。
//
// 支持的 MQ 类型：
//   - NATS（支持 JetStream）
//   - Redis Pub/Sub
//   - memory（进程内 gochannel）
//
// 使用示例：
//
//	client, err := mq.New(ctx, cfg.MQ, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	msg := message.NewMessage(watermill.NewUUID(), []byte("hello world"))
//	err = client.Publish(ctx, "topic", msg)
package mq

import (
	"context"
	"errors"
	"fmt"

	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/quickdrop/pkg/configs"
	nlog "github.com/yeisme/quickdrop/pkg/log"
)

// Backend 工厂的产物. Ping 与 Close 可以为空.
type Backend struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	// Ping 探测底层连接
	Ping func(ctx context.Context) error
	// Close 释放 Publisher 与 Subscriber 之外的资源
	Close func() error
}

// Factory 按配置创建 Backend.
type Factory func(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (*Backend, error)

var (
	factories = map[configs.MQType]Factory{}
)

// RegisterFactory 注册指定 MQType 的工厂.
func RegisterFactory(t configs.MQType, f Factory) {
	factories[t] = f
}

// GetRegisteredMQTypes 返回已注册的 MQ 类型.
func GetRegisteredMQTypes() []configs.MQType {
	types := make([]configs.MQType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	return types
}

// Client 封装 watermill Publisher 与 Subscriber.
type Client struct {
	kind       configs.MQType
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
	metrics    *metrics.PrometheusMetricsBuilder
	ping       func(ctx context.Context) error
	release    func() error
}

// New 初始化消息队列，registry 不为空时为发布/订阅与 router 增加 Prometheus 指标.
func New(ctx context.Context, cfg configs.MQConfig, registry prometheus.Registerer) (*Client, error) {
	factory, ok := factories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported mq type: %s", cfg.Type)
	}

	logger := NewLoggerAdapter(nlog.Logger())

	backend, err := factory(ctx, &cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init mq (%s): %w", cfg.Type, err)
	}

	pub, sub := backend.Publisher, backend.Subscriber
	client := &Client{
		kind:       cfg.Type,
		publisher:  pub,
		subscriber: sub,
		logger:     logger,
		ping:       backend.Ping,
		release:    backend.Close,
	}

	if registry != nil {
		builder := metrics.NewPrometheusMetricsBuilder(registry, "quickdrop", "mq")

		if client.publisher, err = builder.DecoratePublisher(pub); err != nil {
			return nil, errors.Join(fmt.Errorf("decorate publisher with metrics: %w", err), client.Close())
		}

		if client.subscriber, err = builder.DecorateSubscriber(sub); err != nil {
			return nil, errors.Join(fmt.Errorf("decorate subscriber with metrics: %w", err), client.Close())
		}

		client.metrics = &builder
	}

	nlog.Logger().Info().Str("type", string(cfg.Type)).Msg("mq client initialized")

	return client, nil
}

// NewFromPubSub 使用现成的 Publisher/Subscriber 构造客户端，测试中使用.
func NewFromPubSub(kind configs.MQType, pub message.Publisher, sub message.Subscriber) *Client {
	return &Client{kind: kind, publisher: pub, subscriber: sub, logger: watermill.NopLogger{}}
}

// Type 返回 MQ 类型.
func (c *Client) Type() configs.MQType {
	return c.kind
}

// Publisher 返回底层 Publisher.
func (c *Client) Publisher() message.Publisher {
	return c.publisher
}

// Subscriber 返回底层 Subscriber.
func (c *Client) Subscriber() message.Subscriber {
	return c.subscriber
}

// Logger 返回 watermill 日志适配器.
func (c *Client) Logger() watermill.LoggerAdapter {
	return c.logger
}

// NewRouter 创建 watermill router，启用指标时自动挂载 router 指标.
func (c *Client) NewRouter() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}

	if c.metrics != nil {
		c.metrics.AddPrometheusRouterMetrics(router)
	}

	return router, nil
}

// Publish 便捷发布.
func (c *Client) Publish(ctx context.Context, topic string, msgs ...*message.Message) error {
	if c == nil || c.publisher == nil {
		return fmt.Errorf("mq publisher not initialized")
	}

	for _, m := range msgs {
		m.SetContext(ctx)

		if err := c.publisher.Publish(topic, m); err != nil {
			return err
		}
	}

	return nil
}

// Subscribe 便捷订阅.
func (c *Client) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if c == nil || c.subscriber == nil {
		return nil, fmt.Errorf("mq subscriber not initialized")
	}

	return c.subscriber.Subscribe(ctx, topic)
}

// HealthCheck 检查 MQ 客户端是否可用，memory 类型只检查初始化状态.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c == nil || c.publisher == nil || c.subscriber == nil {
		return errors.New("mq client not initialized")
	}

	if c.ping == nil {
		return nil
	}

	return c.ping(ctx)
}

// Close 关闭资源.
func (c *Client) Close() error {
	var errs []error

	if c.publisher != nil {
		if e := c.publisher.Close(); e != nil {
			errs = append(errs, e)
		}
	}

	if c.subscriber != nil {
		if e := c.subscriber.Close(); e != nil {
			errs = append(errs, e)
		}
	}

	if c.release != nil {
		errs = append(errs, c.release())
	}

	return errors.Join(errs...)
}
