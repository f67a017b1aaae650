// Package storage 聚合 QuickDrop 使用的存储资源：数据库、对象存储、KV 与消息队列.
//
// Example:
//
//	mgr, err := storage.New(ctx, configs.GetConfig(), prometheus.DefaultRegisterer)
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	blobs := mgr.GetBlobStore()
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/storage/blob"
	dbc "github.com/yeisme/quickdrop/pkg/internal/storage/db"
	kvc "github.com/yeisme/quickdrop/pkg/internal/storage/kv"
	mqc "github.com/yeisme/quickdrop/pkg/internal/storage/mq"
	s3c "github.com/yeisme/quickdrop/pkg/internal/storage/s3"
	nlog "github.com/yeisme/quickdrop/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	DB   *dbc.Client
	S3   *s3c.Client // s3.type=memory 时为 nil
	Blob blob.Store
	KV   *kvc.Client
	MQ   *mqc.Client
}

// New 按配置初始化全部存储，任一失败时关闭已打开的资源.
func New(ctx context.Context, cfg *configs.AppConfig, registry prometheus.Registerer) (*Manager, error) {
	m := &Manager{}

	var err error

	defer func() {
		if err != nil {
			_ = m.Close()
		}
	}()

	m.DB, err = dbc.New(ctx, cfg.DB, dbc.Options{Debug: cfg.Server.Debug, Metrics: cfg.Metrics.Enabled})
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	var store blob.Store

	switch cfg.S3.Type {
	case configs.S3TypeMemory:
		store = blob.NewMemoryStore()
	default:
		m.S3, err = s3c.New(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("init s3: %w", err)
		}

		store = blob.NewMinioStore(m.S3)
	}

	m.Blob = blob.WithBreaker(store, cfg.CircuitBreaker)

	m.KV, err = kvc.New(ctx, cfg.KV)
	if err != nil {
		return nil, fmt.Errorf("init kv: %w", err)
	}

	m.MQ, err = mqc.New(ctx, cfg.MQ, registry)
	if err != nil {
		return nil, fmt.Errorf("init mq: %w", err)
	}

	nlog.Logger().Info().
		Str("db", string(cfg.DB.Type)).
		Str("s3", string(cfg.S3.Type)).
		Str("kv", string(m.KV.Type())).
		Str("mq", string(m.MQ.Type())).
		Msg("storage manager initialized")

	return m, nil
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetBlobStore 获取对象存储.
func (m *Manager) GetBlobStore() blob.Store {
	return m.Blob
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kvc.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mqc.Client {
	return m.MQ
}

// BlobHealthCheck 检查对象存储，memory 类型直接返回 nil.
func (m *Manager) BlobHealthCheck(ctx context.Context) error {
	if m.S3 == nil {
		return nil
	}

	return m.S3.HealthCheck(ctx)
}

// Close 关闭所有已初始化的资源.
func (m *Manager) Close() error {
	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
