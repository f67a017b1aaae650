package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/quickdrop/pkg/configs"
)

func init() {
	RegisterFactory(configs.MQTypeMemory, memoryFactory)
}

// memoryFactory 进程内 gochannel，Publisher 与 Subscriber 是同一个实例.
func memoryFactory(_ context.Context, cfg *configs.MQConfig, logger watermill.LoggerAdapter) (*Backend, error) {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: int64(bufferSize(cfg)),
	}, logger)

	return &Backend{Publisher: ch, Subscriber: ch}, nil
}

func bufferSize(cfg *configs.MQConfig) int {
	if cfg.BufferSize <= 0 {
		return DefaultChannelBufferSize
	}

	return cfg.BufferSize
}
