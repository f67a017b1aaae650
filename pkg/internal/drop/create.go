package drop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/storage/blob"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	nlog "github.com/yeisme/quickdrop/pkg/log"
	"github.com/yeisme/quickdrop/pkg/metrics"
	"github.com/yeisme/quickdrop/pkg/queue"
	"github.com/yeisme/quickdrop/pkg/tracing"
)

const maxNameLen = 255

// CreateRequest 创建 QuickDrop 的参数，Principal 为限流主体.
type CreateRequest struct {
	FileName    string
	SizeBytes   int64
	ContentType string
	Principal   string
}

// Create 限流后校验参数，分配 token 并插入 pending 记录.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (resp *types.CreateDropResponse, err error) {
	ctx, span := e.tracer.Start(ctx, "drop.create")
	defer func() { tracing.EndSpan(span, err) }()

	if e.limiter != nil {
		if err := e.limiter.Allow(ctx, req.Principal); err != nil {
			return nil, err
		}
	}

	fileName, contentType, err := e.validateCreate(req)
	if err != nil {
		return nil, err
	}

	var d *model.Drop

	for attempt := 0; attempt < e.cfg.TokenAttempts; attempt++ {
		token, err := e.tokens.NewToken()
		if err != nil {
			return nil, fmt.Errorf("generate token: %w", err)
		}

		candidate := &model.Drop{
			Token:       token,
			FileName:    fileName,
			SizeBytes:   req.SizeBytes,
			ContentType: contentType,
			StoragePath: StoragePath(token, fileName),
			Status:      model.DropPending,
			CreatedAt:   e.clock.Now(),
		}

		err = e.store.Insert(ctx, candidate)
		if errors.Is(err, ErrDuplicate) {
			continue
		}

		if err != nil {
			return nil, err
		}

		d = candidate

		break
	}

	if d == nil {
		nlog.Logger().Error().Int("attempts", e.cfg.TokenAttempts).Msg("quickdrop token allocation exhausted")

		return nil, fmt.Errorf("after %d attempts: %w", e.cfg.TokenAttempts, types.ErrAllocationExhausted)
	}

	span.SetAttributes(attribute.Int64("drop.size_bytes", d.SizeBytes))
	metrics.DropTransitions.WithLabelValues("created").Inc()
	e.events.EmitDrop(ctx, queue.TopicDropCreated, dropPayload(d, ""))

	resp = &types.CreateDropResponse{
		Token:        d.Token,
		StoragePath:  d.StoragePath,
		UploadPath:   e.uploadPrefix + d.Token + "/payload",
		MaxSizeBytes: e.cfg.MaxSizeBytes,
	}

	if p, ok := e.blobs.(blob.Presigner); ok && e.presignExpiry > 0 {
		u, err := p.PresignPut(ctx, d.StoragePath, e.presignExpiry)
		if err != nil {
			nlog.Logger().Warn().Err(err).Str("token", tokenLabel(d.Token)).Msg("presign upload url failed")
		} else {
			resp.UploadURL = u
		}
	}

	return resp, nil
}

func (e *Engine) validateCreate(req CreateRequest) (string, string, error) {
	fileName := strings.TrimSpace(req.FileName)
	if fileName == "" {
		return "", "", fmt.Errorf("%w: fileName is required", types.ErrInvalidInput)
	}

	if utf8.RuneCountInString(fileName) > maxNameLen {
		return "", "", fmt.Errorf("%w: fileName must be at most %d characters", types.ErrInvalidInput, maxNameLen)
	}

	if req.SizeBytes <= 0 {
		return "", "", fmt.Errorf("%w: sizeBytes must be positive", types.ErrInvalidInput)
	}

	if req.SizeBytes > e.cfg.MaxSizeBytes {
		return "", "", fmt.Errorf("%w: sizeBytes exceeds the %d byte limit", types.ErrInvalidInput, e.cfg.MaxSizeBytes)
	}

	contentType := strings.TrimSpace(req.ContentType)
	if utf8.RuneCountInString(contentType) > maxNameLen {
		return "", "", fmt.Errorf("%w: contentType must be at most %d characters", types.ErrInvalidInput, maxNameLen)
	}

	if contentType == "" {
		contentType = blob.DefaultContentType
	}

	return fileName, contentType, nil
}

// Upload 服务端上传负载，记录必须存在且处于 pending，且负载只能写入一次.
// size 为请求体长度，未知时传 -1；负载不能超过声明的大小.
// 上传期间本进程内的 Activate 会被拒绝.
func (e *Engine) Upload(ctx context.Context, token string, r io.Reader, size int64) (resp *types.UploadDropResponse, err error) {
	ctx, span := e.tracer.Start(ctx, "drop.upload")
	defer func() { tracing.EndSpan(span, err) }()

	d, err := e.lookup(ctx, token)
	if err != nil {
		return nil, err
	}

	if d.Status != model.DropPending {
		return nil, fmt.Errorf("upload to %s drop: %w", d.Status, types.ErrStateConflict)
	}

	if _, busy := e.uploads.LoadOrStore(d.Token, struct{}{}); busy {
		return nil, fmt.Errorf("upload already in progress: %w", types.ErrStateConflict)
	}
	defer e.uploads.Delete(d.Token)

	switch _, err := e.blobs.Stat(ctx, d.StoragePath); {
	case err == nil:
		return nil, fmt.Errorf("payload already uploaded: %w", types.ErrStateConflict)
	case !errors.Is(err, blob.ErrNotFound):
		return nil, fmt.Errorf("stat payload: %w", err)
	}

	limit := min(d.SizeBytes, e.cfg.MaxSizeBytes)
	if size > limit {
		return nil, fmt.Errorf("%w: payload larger than declared size", types.ErrInvalidInput)
	}

	readLimit := limit
	if size >= 0 {
		readLimit = size
	}

	cr := &countingReader{r: io.LimitReader(r, readLimit)}
	if err := e.blobs.Put(ctx, d.StoragePath, cr, size, d.ContentType); err != nil {
		if cr.eof && size >= 0 && cr.n < size {
			return nil, fmt.Errorf("%w: payload shorter than its content length", types.ErrInvalidInput)
		}

		return nil, fmt.Errorf("store payload: %w", err)
	}

	if n, _ := r.Read(make([]byte, 1)); n > 0 {
		_ = e.blobs.Delete(ctx, d.StoragePath)

		return nil, fmt.Errorf("%w: payload larger than declared size", types.ErrInvalidInput)
	}

	// 其它进程可能在写入期间激活或回收了记录
	cur, err := e.lookup(ctx, token)
	if errors.Is(err, types.ErrNotFound) {
		_ = e.blobs.Delete(ctx, d.StoragePath)

		return nil, err
	}

	if err != nil {
		return nil, err
	}

	if cur.Status != model.DropPending {
		return nil, fmt.Errorf("drop became %s during upload: %w", cur.Status, types.ErrStateConflict)
	}

	return &types.UploadDropResponse{Token: d.Token, SizeBytes: cr.n}, nil
}

type countingReader struct {
	r   io.Reader
	n   int64
	eof bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)

	if errors.Is(err, io.EOF) {
		c.eof = true
	}

	return n, err
}

func (e *Engine) lookup(ctx context.Context, token string) (*model.Drop, error) {
	if !ValidToken(token) {
		return nil, fmt.Errorf("malformed token: %w", types.ErrNotFound)
	}

	return e.store.Get(ctx, token)
}

func dropPayload(d *model.Drop, reason string) queue.DropPayload {
	return queue.DropPayload{
		TokenPrefix: queue.TokenPrefix(d.Token),
		FileName:    d.FileName,
		SizeBytes:   d.SizeBytes,
		ContentType: d.ContentType,
		Status:      string(d.Status),
		ExpiresAt:   d.ExpiresAt,
		Reason:      reason,
	}
}
