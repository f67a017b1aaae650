package drop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/storage/blob"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	nlog "github.com/yeisme/quickdrop/pkg/log"
	"github.com/yeisme/quickdrop/pkg/metrics"
	"github.com/yeisme/quickdrop/pkg/queue"
	"github.com/yeisme/quickdrop/pkg/tracing"
)

// Activate 把已上传负载的 pending 记录置为 active，并设置 expiresAt=now+ActiveTTL.
// 重复激活返回 ErrStateConflict，expiresAt 不会被延长.
func (e *Engine) Activate(ctx context.Context, token string) (resp *types.ActivateDropResponse, err error) {
	ctx, span := e.tracer.Start(ctx, "drop.activate")
	defer func() { tracing.EndSpan(span, err) }()

	d, err := e.lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	if d.Status != model.DropPending {
		return nil, fmt.Errorf("activate %s drop: %w", d.Status, types.ErrStateConflict)
	}

	if e.uploading(d.Token) {
		return nil, fmt.Errorf("payload upload in progress: %w", types.ErrStateConflict)
	}

	meta, err := e.blobs.Stat(ctx, d.StoragePath)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("payload not uploaded: %w", types.ErrStateConflict)
	}

	if err != nil {
		return nil, fmt.Errorf("stat payload: %w", err)
	}

	if meta.Size > e.cfg.MaxSizeBytes || meta.Size > d.SizeBytes {
		// 预签名直传无法限制大小，这里兜底
		if derr := e.blobs.Delete(ctx, d.StoragePath); derr != nil {
			nlog.Logger().Warn().Err(derr).Str("token", tokenLabel(token)).Msg("delete oversized payload failed")
		}

		return nil, fmt.Errorf("%w: uploaded payload exceeds declared size", types.ErrInvalidInput)
	}

	updated, err := e.store.Update(ctx, token, func(d *model.Drop) (bool, error) {
		if d.Status != model.DropPending {
			return false, fmt.Errorf("activate %s drop: %w", d.Status, types.ErrStateConflict)
		}

		expiresAt := e.clock.Now().Add(e.cfg.ActiveTTL)
		d.Status = model.DropActive
		d.ExpiresAt = &expiresAt

		return true, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DropTransitions.WithLabelValues("activated").Inc()
	e.events.EmitDrop(ctx, queue.TopicDropActivated, dropPayload(updated, ""))

	sharePath := e.cfg.SharePrefix + updated.Token

	resp = &types.ActivateDropResponse{
		SharePath:   sharePath,
		ExpiresInMs: e.cfg.ActiveTTL.Milliseconds(),
		ExpiresAt:   *updated.ExpiresAt,
		Token:       updated.Token,
	}

	if e.publicURL != "" {
		resp.ShareURL = strings.TrimRight(e.publicURL, "/") + sharePath
	}

	return resp, nil
}
