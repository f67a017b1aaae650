package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	nc "github.com/nats-io/nats.go"

	"github.com/yeisme/quickdrop/pkg/configs"
)

const (
	drainTimeout   = 30 * time.Second
	flusherTimeout = 10 * time.Second
)

func init() {
	RegisterFactory(configs.MQTypeNATS, natsFactory)
}

// natsOptions 连接选项，publisher、subscriber 与健康检查连接共用.
func natsOptions(cfg configs.MQNATSConfig) []nc.Option {
	opts := []nc.Option{
		nc.Name(cfg.ClientName),
		nc.MaxReconnects(cfg.MaxReconnects),
		nc.ReconnectWait(cfg.ReconnectWait),
		nc.PingInterval(cfg.PingInterval),
		nc.MaxPingsOutstanding(cfg.MaxPingsOut),
		nc.ReconnectBufSize(cfg.ReconnectBuf),
		nc.DrainTimeout(drainTimeout),
		nc.FlusherTimeout(flusherTimeout),
		nc.RetryOnFailedConnect(!cfg.StrictConnect),
	}

	if !cfg.Randomize {
		opts = append(opts, nc.DontRandomize())
	}

	switch {
	case cfg.JWT != "":
		opts = append(opts, nc.UserJWTAndSeed(cfg.JWT, cfg.Seed))
	case cfg.User != "":
		opts = append(opts, nc.UserInfo(cfg.User, cfg.Password))
	}

	return opts
}

func jetStreamConfig(cfg configs.MQJetStreamConfig) nats.JetStreamConfig {
	if !cfg.Enabled {
		return nats.JetStreamConfig{Disabled: true}
	}

	return nats.JetStreamConfig{
		AutoProvision: cfg.AutoProvision,
		TrackMsgId:    cfg.TrackMsgID,
		AckAsync:      cfg.AckAsync,
		DurablePrefix: cfg.DurablePrefix,
	}
}

// natsFactory 创建 JetStream（或 core NATS）的 publisher 与 subscriber，另开一条连接用于健康检查.
func natsFactory(ctx context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (*Backend, error) {
	n := cfg.NATS
	url := strings.Join(n.URLs(), ",")
	opts := natsOptions(n)
	js := jetStreamConfig(n.JetStream)
	marshaler := &nats.JSONMarshaler{}

	pub, err := nats.NewPublisher(nats.PublisherConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   js,
		Marshaler:   marshaler,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := nats.NewSubscriber(nats.SubscriberConfig{
		URL:         url,
		NatsOptions: opts,
		JetStream:   js,
		Unmarshaler: marshaler,
	}, logger)
	if err != nil {
		_ = pub.Close()

		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	monitor, err := nc.Connect(url, opts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("connect nats: %w", err), pub.Close(), sub.Close())
	}

	return &Backend{
		Publisher:  pub,
		Subscriber: sub,
		Ping: func(ctx context.Context) error {
			if status := monitor.Status(); status != nc.CONNECTED {
				return fmt.Errorf("nats connection %s", status)
			}

			return monitor.FlushWithContext(ctx)
		},
		Close: func() error {
			monitor.Close()

			return nil
		},
	}, nil
}
