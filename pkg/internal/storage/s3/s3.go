// Package s3 连接 MinIO/S3 并管理 QuickDrop 的存储桶.
package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/quickdrop/pkg/configs"
	nlog "github.com/yeisme/quickdrop/pkg/log"
)

// Client 持有 MinIO 客户端与目标存储桶.
type Client struct {
	*minio.Client

	bucket string
}

// Endpoint 拆分配置中的 endpoint，返回 host[:port] 与是否启用 TLS.
func Endpoint(cfg configs.S3Config) (string, bool, error) {
	raw := strings.TrimSpace(cfg.Endpoint)
	if !strings.Contains(raw, "://") {
		return strings.TrimSuffix(raw, "/"), cfg.UseSSL, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse s3 endpoint %q: %w", raw, err)
	}

	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, cfg.UseSSL, nil
	default:
		return "", false, fmt.Errorf("s3 endpoint %q: unsupported scheme %q", raw, u.Scheme)
	}
}

// New 连接对象存储. create_bucket 开启时缺失的存储桶会被创建，否则返回错误.
func New(ctx context.Context, cfg configs.S3Config) (*Client, error) {
	host, secure, err := Endpoint(cfg)
	if err != nil {
		return nil, err
	}

	lookup := minio.BucketLookupAuto
	if cfg.PathStyle {
		lookup = minio.BucketLookupPath
	}

	cli, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("quickdrop", configs.AppVersion)

	l := nlog.Component("s3").With().Str("endpoint", host).Str("bucket", cfg.Bucket).Logger()

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}

	if !exists {
		if !cfg.CreateBucket {
			return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
		}

		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}

		l.Info().Msg("bucket created")
	}

	l.Info().Bool("tls", secure).Msg("s3 connected")

	return &Client{Client: cli, bucket: cfg.Bucket}, nil
}

// Bucket 存储桶名称.
func (c *Client) Bucket() string {
	return c.bucket
}

// HealthCheck 确认存储桶仍然可访问.
func (c *Client) HealthCheck(ctx context.Context) error {
	ok, err := c.BucketExists(ctx, c.bucket)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("bucket %s missing", c.bucket)
	}

	return nil
}
