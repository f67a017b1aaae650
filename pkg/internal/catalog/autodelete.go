package catalog

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	nlog "github.com/yeisme/quickdrop/pkg/log"

	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/storage/blob"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	"github.com/yeisme/quickdrop/pkg/metrics"
	"github.com/yeisme/quickdrop/pkg/queue"
	"github.com/yeisme/quickdrop/pkg/tracing"
)

var errNotConsumable = fmt.Errorf("auto-delete token not consumable: %w", types.ErrNotFound)

// IssueAutoDeleteToken 为下载后自动删除的文件签发一次性 token.
// 未过期的 secret 会被复用，同一文件同一时刻只有一个有效 token.
func (s *Service) IssueAutoDeleteToken(ctx context.Context, id string) (resp *types.AutoDeleteTokenResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.issue_auto_delete")
	defer func() { tracing.EndSpan(span, err) }()

	f, err := s.store.Update(ctx, id, func(f *model.File) error {
		if f.DeletedAt != nil || f.AutoDeleteConsumedAt != nil {
			return fmt.Errorf("file %s already removed: %w", f.ID, types.ErrGone)
		}

		if !f.DeleteAfterDownload {
			return fmt.Errorf("file %s is not auto-delete: %w", f.ID, types.ErrStateConflict)
		}

		now := s.now()
		if f.AutoDeleteToken != nil && f.AutoDeleteIssuedAt != nil &&
			now.Sub(*f.AutoDeleteIssuedAt) < s.cfg.AutoDeleteTTL {
			return nil
		}

		secret, err := newSecret()
		if err != nil {
			return err
		}

		f.AutoDeleteToken = &secret
		f.AutoDeleteIssuedAt = &now
		f.UpdatedAt = now

		return nil
	})
	if err != nil {
		return nil, err
	}

	token := FormatToken(f.ID, *f.AutoDeleteToken)

	return &types.AutoDeleteTokenResponse{
		Token:       token,
		DownloadURL: s.cfg.ConsumePath + token,
		IssuedAt:    *f.AutoDeleteIssuedAt,
		ExpiresAt:   f.AutoDeleteIssuedAt.Add(s.cfg.AutoDeleteTTL),
	}, nil
}

// Download 自动删除文件的负载流，Close 时删除对象.
type Download struct {
	FileName    string
	ContentType string
	Size        int64

	body    io.ReadCloser
	once    sync.Once
	cleanup func()
}

func (d *Download) Read(p []byte) (int, error) {
	return d.body.Read(p)
}

// Close 关闭流并删除对象，多次调用安全.
func (d *Download) Close() error {
	var err error

	d.once.Do(func() {
		err = d.body.Close()
		d.cleanup()
	})

	return err
}

// ConsumeAutoDeleteToken 消费一次性 token 并返回文件流.
// 记录先在事务中标记删除，之后才打开对象，因此并发消费只有一个能成功.
// 所有拒绝原因都返回 ErrNotFound.
func (s *Service) ConsumeAutoDeleteToken(ctx context.Context, raw string) (dl *Download, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.consume_auto_delete")
	defer func() { tracing.EndSpan(span, err) }()

	id, secret, ok := ParseToken(strings.TrimSpace(raw))
	if !ok {
		return nil, errNotConsumable
	}

	check := func(f *model.File) error {
		now := s.now()

		switch {
		case f.DeletedAt != nil, !f.DeleteAfterDownload:
			return errNotConsumable
		case f.AutoDeleteToken == nil || f.AutoDeleteIssuedAt == nil:
			return errNotConsumable
		case subtle.ConstantTimeCompare([]byte(*f.AutoDeleteToken), []byte(secret)) != 1:
			return errNotConsumable
		case now.Sub(*f.AutoDeleteIssuedAt) > s.cfg.AutoDeleteTTL:
			return errNotConsumable
		}

		return nil
	}

	f, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return nil, errNotConsumable
		}

		return nil, err
	}

	if err := check(f); err != nil {
		return nil, err
	}

	// 对象缺失时不消费 token，避免记录被删除而文件从未交付
	if _, err := s.blobs.Stat(ctx, f.StoragePath); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, errNotConsumable
		}

		return nil, err
	}

	f, err = s.store.Update(ctx, id, func(f *model.File) error {
		if err := check(f); err != nil {
			return err
		}

		now := s.now()
		f.DeletedAt = &now
		f.AutoDeleteConsumedAt = &now
		f.UpdatedAt = now
		f.UpdatedBy = UpdatedByAutoDelete
		f.AutoDeleteToken = nil

		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.AutoDeleteConsumed.Inc()
	s.events.EmitFile(ctx, queue.TopicFileAutoDeleted, queue.FilePayload{
		FileID:    f.ID,
		FileName:  f.FileName,
		SizeBytes: f.SizeBytes,
		UpdatedBy: f.UpdatedBy,
	})

	body, meta, err := s.blobs.Open(ctx, f.StoragePath)
	if err != nil {
		s.removeObject(ctx, f)

		if errors.Is(err, blob.ErrNotFound) {
			return nil, errNotConsumable
		}

		return nil, err
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = meta.ContentType
	}

	return &Download{
		FileName:    f.FileName,
		ContentType: contentType,
		Size:        meta.Size,
		body:        body,
		cleanup:     func() { s.removeObject(ctx, f) },
	}, nil
}

func (s *Service) removeObject(ctx context.Context, f *model.File) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), removeTimeout)
	defer cancel()

	if err := s.blobs.Delete(ctx, f.StoragePath); err != nil {
		nlog.Logger().Warn().Err(err).Str("file_id", f.ID).Str("path", f.StoragePath).
			Msg("failed to delete auto-delete object")
	}
}
