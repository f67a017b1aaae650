package drop

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	nlog "github.com/yeisme/quickdrop/pkg/log"
	"github.com/yeisme/quickdrop/pkg/metrics"
	"github.com/yeisme/quickdrop/pkg/queue"
	"github.com/yeisme/quickdrop/pkg/tracing"
)

// Status 返回派生状态：active 且已到期视为 expired.
// 开启 LazyGC 时，读到的过期记录与超过宽限期的已消费记录会被顺带清理.
func (e *Engine) Status(ctx context.Context, token string) (resp *types.DropStatusResponse, err error) {
	ctx, span := e.tracer.Start(ctx, "drop.status")
	defer func() { tracing.EndSpan(span, err) }()

	d, err := e.lookup(ctx, token)
	if errors.Is(err, types.ErrNotFound) && ValidToken(token) {
		ts, ok, terr := e.tombstones.Lookup(ctx, token)
		if terr != nil {
			nlog.Logger().Warn().Err(terr).Str("token", tokenLabel(token)).Msg("read tombstone failed")
		}

		if ok {
			return &types.DropStatusResponse{
				Status:    string(model.DropConsumed),
				FileName:  ts.FileName,
				SizeBytes: ts.SizeBytes,
			}, nil
		}

		return nil, err
	}

	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	status := d.EffectiveStatus(now)

	resp = &types.DropStatusResponse{
		Status:      string(status),
		FileName:    d.FileName,
		SizeBytes:   d.SizeBytes,
		ExpiresAt:   d.ExpiresAt,
		RemainingMs: d.RemainingMs(now),
	}

	if !e.cfg.LazyGC {
		return resp, nil
	}

	switch status {
	case model.DropExpired:
		if d.Status == model.DropActive {
			metrics.DropTransitions.WithLabelValues("expired").Inc()
			e.events.EmitDrop(ctx, queue.TopicDropExpired, dropPayload(d, "expired"))
		}

		if !e.purge(context.WithoutCancel(ctx), d) {
			e.markExpired(ctx, d.Token)
		}
	case model.DropConsumed:
		// 正在传输的流不能被打断
		if e.cutoffs(now).Match(d) && !e.streaming(d.Token) {
			e.purge(context.WithoutCancel(ctx), d)
		}
	}

	return resp, nil
}

// markExpired 把未能清理的 active 记录持久化为 expired，确保 Reaper 能处理.
func (e *Engine) markExpired(ctx context.Context, token string) {
	_, err := e.store.Update(ctx, token, func(d *model.Drop) (bool, error) {
		if d.Status != model.DropActive {
			return false, nil
		}

		now := e.clock.Now()
		if d.ExpiresAt != nil && d.ExpiresAt.After(now) {
			return false, nil
		}

		d.Status = model.DropExpired

		return true, nil
	})
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		nlog.Logger().Warn().Err(fmt.Errorf("mark expired: %w", err)).Str("token", tokenLabel(token)).Msg("lazy gc failed")
	}
}
