package drop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	nlog "github.com/yeisme/quickdrop/pkg/log"
	"github.com/yeisme/quickdrop/pkg/metrics"
	"github.com/yeisme/quickdrop/pkg/queue"
	"github.com/yeisme/quickdrop/pkg/tracing"
)

// DefaultMaxBatches 单次运行最多处理的批次数.
const DefaultMaxBatches = 10

// Reaper 回收过期、已消费和超时未激活的记录.
// 同一进程内的重叠运行会被跳过；多个进程并发运行时删除操作是幂等的.
type Reaper struct {
	engine     *Engine
	maxBatches int
	mu         sync.Mutex
}

// NewReaper 创建回收器.
func NewReaper(e *Engine) *Reaper {
	return &Reaper{engine: e, maxBatches: DefaultMaxBatches}
}

// RunOnce 执行一次回收：批次满且无失败时继续下一批.
func (r *Reaper) RunOnce(ctx context.Context) (res types.ReapResponse, err error) {
	if !r.mu.TryLock() {
		return types.ReapResponse{Skipped: true}, nil
	}
	defer r.mu.Unlock()

	ctx, span := r.engine.tracer.Start(ctx, "drop.reap")
	defer func() { tracing.EndSpan(span, err) }()

	start := time.Now()
	defer func() { metrics.ReaperDuration.Observe(time.Since(start).Seconds()) }()

	e := r.engine
	log := nlog.Logger().With().Str("job", "reaper").Logger()

	for res.Batches < r.maxBatches {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		cut := e.cutoffs(e.clock.Now())

		items, err := e.store.ListReclaimable(ctx, cut, e.cfg.ReaperBatch)
		if err != nil {
			return res, err
		}

		res.Batches++
		res.Scanned += len(items)

		var deleted, failed, deferred int

		for i := range items {
			d := &items[i]
			l := log.With().Str("token", tokenLabel(d.Token)).Logger()

			switch ok, err := r.claim(ctx, d, cut); {
			case err != nil:
				failed++

				l.Warn().Err(err).Msg("claim record failed")

				continue
			case !ok:
				deferred++

				continue
			}

			if err := e.blobs.Delete(ctx, d.StoragePath); err != nil {
				failed++

				l.Warn().Err(err).Msg("delete payload failed")

				continue
			}

			if err := e.store.Delete(ctx, d.Token); err != nil {
				failed++

				l.Warn().Err(err).Msg("delete record failed")

				continue
			}

			deleted++

			e.events.EmitDrop(ctx, queue.TopicDropReaped, dropPayload(d, reapReason(d)))
		}

		res.Deleted += deleted
		res.Failed += failed
		res.Deferred += deferred
		metrics.ReaperDeleted.WithLabelValues("deleted").Add(float64(deleted))
		metrics.ReaperDeleted.WithLabelValues("failed").Add(float64(failed))

		if len(items) < e.cfg.ReaperBatch || failed > 0 || deferred > 0 {
			break
		}
	}

	if res.Deleted > 0 || res.Failed > 0 || res.Deferred > 0 {
		log.Info().
			Int("deleted", res.Deleted).
			Int("failed", res.Failed).
			Int("deferred", res.Deferred).
			Int("batches", res.Batches).
			Msg("reaper sweep finished")
	}

	return res, nil
}

// claim 确认记录此刻仍可回收.
//   - 本进程内仍在传输的 consumed 记录推迟到下次
//   - pending 记录在事务内改为 expired，与并发的 Activate 互斥；
//     Activate 先提交时返回 false
func (r *Reaper) claim(ctx context.Context, d *model.Drop, cut Cutoffs) (bool, error) {
	e := r.engine

	switch d.Status {
	case model.DropConsumed:
		return !e.streaming(d.Token), nil
	case model.DropPending:
	default:
		return true, nil
	}

	if e.uploading(d.Token) {
		return false, nil
	}

	_, err := e.store.Update(ctx, d.Token, func(cur *model.Drop) (bool, error) {
		if cur.Status != model.DropPending || !cut.Match(cur) {
			return false, errNotReclaimable
		}

		cur.Status = model.DropExpired

		return true, nil
	})

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNotReclaimable), errors.Is(err, types.ErrStateConflict), errors.Is(err, types.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

var errNotReclaimable = errors.New("drop no longer reclaimable")

func reapReason(d *model.Drop) string {
	switch d.Status {
	case model.DropPending:
		return "pending_timeout"
	case model.DropConsumed:
		return "consumed"
	default:
		return "expired"
	}
}
