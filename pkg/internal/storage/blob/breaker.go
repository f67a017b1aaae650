package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/types"
)

// breakerStore 为 Store 增加熔断，熔断打开时快速返回 ErrStorageUnavailable.
type breakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker 用 gobreaker 包装 Store，未启用时原样返回.
func WithBreaker(next Store, cfg configs.CircuitBreakerConfig) Store {
	if !cfg.Enabled {
		return next
	}

	settings := gobreaker.Settings{
		Name:        "blob-store",
		MaxRequests: cfg.HalfOpenMax,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return cfg.ShouldTrip(counts.Requests, counts.TotalFailures)
		},
		// 对象不存在和调用方取消不计为存储故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	}

	var presigner Presigner
	if p, ok := next.(Presigner); ok {
		presigner = p
	}

	bs := &breakerStore{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
	if presigner != nil {
		return &breakerPresignStore{breakerStore: bs, presigner: presigner}
	}

	return bs
}

func (b *breakerStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Put(ctx, path, r, size, contentType)
	})

	return mapBreakerErr(err)
}

func (b *breakerStore) Open(ctx context.Context, path string) (io.ReadCloser, Meta, error) {
	var meta Meta

	res, err := b.cb.Execute(func() (any, error) {
		rc, m, err := b.next.Open(ctx, path)
		meta = m

		return rc, err
	})
	if err != nil {
		return nil, Meta{}, mapBreakerErr(err)
	}

	return res.(io.ReadCloser), meta, nil
}

func (b *breakerStore) Stat(ctx context.Context, path string) (Meta, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Stat(ctx, path)
	})
	if err != nil {
		return Meta{}, mapBreakerErr(err)
	}

	return res.(Meta), nil
}

func (b *breakerStore) Delete(ctx context.Context, path string) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.next.Delete(ctx, path)
	})

	return mapBreakerErr(err)
}

// State 返回熔断器当前状态.
func (b *breakerStore) State() gobreaker.State {
	return b.cb.State()
}

type breakerPresignStore struct {
	*breakerStore

	presigner Presigner
}

func (b *breakerPresignStore) PresignPut(ctx context.Context, path string, expiry time.Duration) (string, error) {
	return b.presigner.PresignPut(ctx, path, expiry)
}

func (b *breakerPresignStore) PresignGet(ctx context.Context, path, fileName string, expiry time.Duration) (string, error) {
	return b.presigner.PresignGet(ctx, path, fileName, expiry)
}

func mapBreakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", types.ErrStorageUnavailable, err)
	}

	return err
}
