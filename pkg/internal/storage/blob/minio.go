package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	minio "github.com/minio/minio-go/v7"

	"github.com/yeisme/quickdrop/pkg/internal/types"
	s3c "github.com/yeisme/quickdrop/pkg/internal/storage/s3"
)

// MinioStore 基于 MinIO/S3 的 Store 实现.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore 使用已连接的 S3 客户端创建 Store.
func NewMinioStore(client *s3c.Client) *MinioStore {
	return &MinioStore{client: client.Client, bucket: client.Bucket()}
}

func (s *MinioStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = DefaultContentType
	}

	_, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return unavailable("put", path, err)
	}

	return nil
}

func (s *MinioStore) Open(ctx context.Context, path string) (io.ReadCloser, Meta, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, Meta{}, classify("open", path, err)
	}

	// GetObject 是惰性的，Stat 触发真正的请求并暴露 NoSuchKey
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()

		return nil, Meta{}, classify("open", path, err)
	}

	return obj, Meta{ContentType: info.ContentType, Size: info.Size}, nil
}

func (s *MinioStore) Stat(ctx context.Context, path string) (Meta, error) {
	info, err := s.client.StatObject(ctx, s.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		return Meta{}, classify("stat", path, err)
	}

	return Meta{ContentType: info.ContentType, Size: info.Size}, nil
}

func (s *MinioStore) Delete(ctx context.Context, path string) error {
	err := s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return unavailable("delete", path, err)
	}

	return nil
}

// PresignPut 生成预签名上传地址.
func (s *MinioStore) PresignPut(ctx context.Context, path string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, path, expiry)
	if err != nil {
		return "", unavailable("presign put", path, err)
	}

	return u.String(), nil
}

// PresignGet 生成预签名下载地址，并让存储以附件形式返回.
func (s *MinioStore) PresignGet(ctx context.Context, path, fileName string, expiry time.Duration) (string, error) {
	params := url.Values{}
	if fileName != "" {
		params.Set("response-content-disposition", "attachment; filename*=UTF-8''"+url.PathEscape(fileName))
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, path, expiry, params)
	if err != nil {
		return "", unavailable("presign get", path, err)
	}

	return u.String(), nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code

	return code == "NoSuchKey" || code == "NotFound"
}

func classify(op, path string, err error) error {
	if isNoSuchKey(err) {
		return fmt.Errorf("%s %s: %w", op, path, ErrNotFound)
	}

	return unavailable(op, path, err)
}

func unavailable(op, path string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	return fmt.Errorf("%w: %s %s: %v", types.ErrStorageUnavailable, op, path, err)
}
