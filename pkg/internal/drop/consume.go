package drop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/yeisme/quickdrop/pkg/cache"
	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/storage/blob"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	nlog "github.com/yeisme/quickdrop/pkg/log"
	"github.com/yeisme/quickdrop/pkg/metrics"
	"github.com/yeisme/quickdrop/pkg/queue"
	"github.com/yeisme/quickdrop/pkg/tracing"
)

// cleanupTimeout 流结束后删除负载和记录的超时.
const cleanupTimeout = 30 * time.Second

// Download 已被消费的负载流.
// Close 必须被调用，无论读取是否成功，Close 都会删除负载和记录.
// 未关闭期间 Reaper 与状态查询不会回收该记录.
type Download struct {
	FileName    string
	ContentType string
	Size        int64

	body    io.ReadCloser
	read    int64
	once    sync.Once
	cleanup func(read int64)
}

func (d *Download) Read(p []byte) (int, error) {
	n, err := d.body.Read(p)
	d.read += int64(n)

	return n, err
}

// Close 关闭流并删除负载和记录，多次调用安全.
func (d *Download) Close() error {
	var err error

	d.once.Do(func() {
		err = d.body.Close()
		d.cleanup(d.read)
	})

	return err
}

// Consume 以事务方式消费 token，只有一个调用方能拿到 Download.
// 过期的记录会在同一事务中标记为 expired 并返回 ErrExpired.
func (e *Engine) Consume(ctx context.Context, token string) (dl *Download, err error) {
	ctx, span := e.tracer.Start(ctx, "drop.consume")
	defer func() { tracing.EndSpan(span, err) }()

	if !ValidToken(token) {
		metrics.ConsumeRejected.WithLabelValues("not_found").Inc()

		return nil, fmt.Errorf("malformed token: %w", types.ErrNotFound)
	}

	d, err := e.store.Update(ctx, token, func(d *model.Drop) (bool, error) {
		now := e.clock.Now()

		if d.Status != model.DropActive {
			return false, fmt.Errorf("consume %s drop: %w", d.Status, types.ErrStateConflict)
		}

		if d.ExpiresAt == nil || !d.ExpiresAt.After(now) {
			d.Status = model.DropExpired

			return true, fmt.Errorf("drop expired: %w", types.ErrExpired)
		}

		d.Status = model.DropConsumed
		d.ConsumedAt = &now

		return true, nil
	})
	if err != nil {
		e.rejected(ctx, d, err)

		return nil, err
	}

	metrics.DropTransitions.WithLabelValues("consumed").Inc()
	e.events.EmitDrop(ctx, queue.TopicDropConsumed, dropPayload(d, ""))

	if merr := e.tombstones.Mark(ctx, d.Token, cache.Tombstone{
		FileName:   d.FileName,
		SizeBytes:  d.SizeBytes,
		ConsumedAt: *d.ConsumedAt,
	}); merr != nil {
		nlog.Logger().Warn().Err(merr).Str("token", tokenLabel(token)).Msg("write tombstone failed")
	}

	body, meta, err := e.blobs.Open(ctx, d.StoragePath)
	if err != nil {
		// 记录已处于 consumed，负载不可再被取回，直接清理
		e.purge(context.WithoutCancel(ctx), d)

		if errors.Is(err, blob.ErrNotFound) {
			metrics.ConsumeRejected.WithLabelValues("gone").Inc()

			return nil, fmt.Errorf("payload missing: %w", types.ErrGone)
		}

		return nil, fmt.Errorf("open payload: %w", err)
	}

	contentType := meta.ContentType
	if contentType == "" || (contentType == blob.DefaultContentType && d.ContentType != "") {
		contentType = d.ContentType
	}

	size := meta.Size
	if size <= 0 {
		size = d.SizeBytes
	}

	detached := context.WithoutCancel(ctx)

	e.streams.Store(d.Token, struct{}{})

	return &Download{
		FileName:    d.FileName,
		ContentType: contentType,
		Size:        size,
		body:        body,
		cleanup: func(read int64) {
			metrics.StreamedBytes.WithLabelValues("drop").Add(float64(read))

			if read < size {
				nlog.Logger().Warn().
					Str("token", tokenLabel(d.Token)).
					Int64("read", read).
					Int64("size", size).
					Msg("quickdrop stream ended early, payload deleted anyway")
			}

			e.purge(detached, d)
			e.streams.Delete(d.Token)
		},
	}, nil
}

func (e *Engine) rejected(ctx context.Context, d *model.Drop, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		metrics.ConsumeRejected.WithLabelValues("not_found").Inc()
	case errors.Is(err, types.ErrExpired):
		metrics.ConsumeRejected.WithLabelValues("expired").Inc()
		metrics.DropTransitions.WithLabelValues("expired").Inc()

		if d != nil {
			e.events.EmitDrop(ctx, queue.TopicDropExpired, dropPayload(d, "expired"))
		}
	case errors.Is(err, types.ErrStateConflict):
		metrics.ConsumeRejected.WithLabelValues("conflict").Inc()
	}
}

// purge 先删负载再删记录；负载删除失败时保留记录，由 Reaper 重试.
func (e *Engine) purge(ctx context.Context, d *model.Drop) bool {
	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	l := nlog.Logger().With().Str("token", tokenLabel(d.Token)).Logger()

	if err := e.blobs.Delete(ctx, d.StoragePath); err != nil {
		l.Warn().Err(err).Msg("delete quickdrop payload failed, left for reaper")

		return false
	}

	if err := e.store.Delete(ctx, d.Token); err != nil {
		l.Warn().Err(err).Msg("delete quickdrop record failed, left for reaper")

		return false
	}

	return true
}
