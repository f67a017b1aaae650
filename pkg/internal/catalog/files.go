package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/storage/blob"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	"github.com/yeisme/quickdrop/pkg/tracing"
)

// AddFileInput 新增目录文件的参数.
type AddFileInput struct {
	FileName            string
	ContentType         string
	Password            string
	DeleteAfterDownload bool
	Body                io.Reader
	Size                int64
}

// AddFile 写入负载与记录，提供口令时文件可见性为 password.
func (s *Service) AddFile(ctx context.Context, in AddFileInput) (info *types.FileInfo, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.add_file")
	defer func() { tracing.EndSpan(span, err) }()

	name := strings.TrimSpace(in.FileName)
	if name == "" || utf8.RuneCountInString(name) > 255 {
		return nil, fmt.Errorf("%w: fileName must be 1-255 characters", types.ErrInvalidInput)
	}

	if in.Size <= 0 || in.Size > s.cfg.MaxUploadBytes {
		return nil, fmt.Errorf("%w: size must be in (0, %d]", types.ErrInvalidInput, s.cfg.MaxUploadBytes)
	}

	contentType := strings.TrimSpace(in.ContentType)
	if contentType == "" {
		contentType = blob.DefaultContentType
	}

	now := s.now()
	f := &model.File{
		ID:                  s.newID(now),
		FileName:            name,
		ContentType:         contentType,
		SizeBytes:           in.Size,
		Visibility:          model.VisibilityPublic,
		DeleteAfterDownload: in.DeleteAfterDownload,
		CreatedAt:           now,
		UpdatedAt:           now,
		UpdatedBy:           "admin",
	}
	f.StoragePath = StoragePath(f.ID, name)

	if password := strings.TrimSpace(in.Password); password != "" {
		hash, salt, err := HashPassword(password, s.cfg.PasswordIters)
		if err != nil {
			return nil, err
		}

		f.Visibility = model.VisibilityPassword
		f.PasswordHash, f.PasswordSalt = hash, salt
	}

	if err := s.blobs.Put(ctx, f.StoragePath, in.Body, in.Size, contentType); err != nil {
		return nil, fmt.Errorf("store file payload: %w", err)
	}

	if err := s.store.Create(ctx, f); err != nil {
		_ = s.blobs.Delete(context.WithoutCancel(ctx), f.StoragePath)

		return nil, err
	}

	return toInfo(f), nil
}

// AuthorizeDownload 校验口令后返回下载地址.
// 自动删除文件返回一次性消费地址（幂等签发），其余文件返回预签名地址.
func (s *Service) AuthorizeDownload(ctx context.Context, id, password string) (resp *types.DownloadResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "catalog.authorize_download")
	defer func() { tracing.EndSpan(span, err) }()

	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: missing file id", types.ErrInvalidInput)
	}

	f, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if f.DeletedAt != nil {
		return nil, fmt.Errorf("file %s deleted: %w", id, types.ErrNotFound)
	}

	if f.Visibility == model.VisibilityPassword {
		if f.PasswordHash == "" || f.PasswordSalt == "" {
			return nil, fmt.Errorf("file %s has no password configuration", id)
		}

		password = strings.TrimSpace(password)
		if password == "" {
			return nil, fmt.Errorf("%w: password required", types.ErrUnauthorized)
		}

		if !VerifyPassword(password, f.PasswordSalt, f.PasswordHash, s.cfg.PasswordIters) {
			return nil, fmt.Errorf("%w: invalid password", types.ErrUnauthorized)
		}
	}

	if f.DeleteAfterDownload {
		tok, err := s.IssueAutoDeleteToken(ctx, id)
		if err != nil {
			return nil, err
		}

		return &types.DownloadResponse{DownloadURL: tok.DownloadURL}, nil
	}

	p, ok := s.blobs.(blob.Presigner)
	if !ok {
		return nil, fmt.Errorf("%w: blob store cannot presign downloads", types.ErrStorageUnavailable)
	}

	u, err := p.PresignGet(ctx, f.StoragePath, f.FileName, s.presignExpiry)
	if err != nil {
		return nil, err
	}

	return &types.DownloadResponse{DownloadURL: u}, nil
}

// ListFiles 按创建时间倒序列出文件.
func (s *Service) ListFiles(ctx context.Context, limit int) ([]types.FileInfo, error) {
	files, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]types.FileInfo, 0, len(files))
	for i := range files {
		out = append(out, *toInfo(&files[i]))
	}

	return out, nil
}

func toInfo(f *model.File) *types.FileInfo {
	return &types.FileInfo{
		ID:                  f.ID,
		FileName:            f.FileName,
		ContentType:         f.ContentType,
		SizeBytes:           f.SizeBytes,
		Visibility:          string(f.Visibility),
		DeleteAfterDownload: f.DeleteAfterDownload,
		CreatedAt:           f.CreatedAt,
		DeletedAt:           f.DeletedAt,
	}
}
