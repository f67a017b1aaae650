// Package drop 实现 QuickDrop 一次性分享链接的生命周期：
// pending → active → consumed / expired → 删除.
//
// Engine 负责创建、上传、激活、消费和状态查询，Reaper 负责后台回收.
// 记录与负载分别保存在 Store 和 blob.Store 中，删除时总是先删负载再删记录，
// 记录删除失败时由 Reaper 重试.
package drop

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/quickdrop/pkg/cache"
	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/storage/blob"
	"github.com/yeisme/quickdrop/pkg/queue"
)

// Limiter 创建请求限流，拒绝时返回包装了 types.ErrRateLimited 的错误.
type Limiter interface {
	Allow(ctx context.Context, principal string) error
}

// Engine QuickDrop 生命周期引擎，并发安全.
type Engine struct {
	cfg           configs.DropConfig
	store         Store
	blobs         blob.Store
	clock         Clock
	tokens        TokenGenerator
	limiter       Limiter
	events        *queue.Emitter
	tombstones    *cache.Tombstones
	presignExpiry time.Duration
	publicURL     string
	uploadPrefix  string
	tracer        trace.Tracer

	// 本进程内进行中的上传与尚未关闭的 Download，key 为 token
	uploads sync.Map
	streams sync.Map
}

// Option Engine 选项.
type Option func(*Engine)

// WithConfig 覆盖默认的生命周期配置.
func WithConfig(cfg configs.DropConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithTokens(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

func WithLimiter(l Limiter) Option {
	return func(e *Engine) { e.limiter = l }
}

func WithEvents(em *queue.Emitter) Option {
	return func(e *Engine) { e.events = em }
}

func WithTombstones(t *cache.Tombstones) Option {
	return func(e *Engine) { e.tombstones = t }
}

// WithPresignExpiry 设置预签名上传地址有效期，0 表示不生成.
func WithPresignExpiry(d time.Duration) Option {
	return func(e *Engine) { e.presignExpiry = d }
}

// WithPublicURL 设置对外地址，用于拼接完整分享链接.
func WithPublicURL(u string) Option {
	return func(e *Engine) { e.publicURL = u }
}

// WithUploadPrefix 设置服务端上传接口的路径前缀.
func WithUploadPrefix(p string) Option {
	return func(e *Engine) { e.uploadPrefix = p }
}

// DefaultConfig 返回内置默认值构成的配置.
func DefaultConfig() configs.DropConfig {
	return configs.DropConfig{
		MaxSizeBytes:  configs.DefaultDropMaxSizeBytes,
		ActiveTTL:     configs.DefaultDropActiveTTL,
		PendingTTL:    configs.DefaultDropPendingTTL,
		Grace:         configs.DefaultDropGrace,
		ConsumedGrace: configs.DefaultDropConsumedGrace,
		ReaperBatch:   configs.DefaultDropReaperBatch,
		TokenAttempts: configs.DefaultDropTokenAttempts,
		LazyGC:        true,
		TombstoneTTL:  configs.DefaultDropTombstoneTTL,
		SharePrefix:   "/quickdrop/",
	}
}

// NewEngine 创建引擎.
func NewEngine(store Store, blobs blob.Store, opts ...Option) *Engine {
	e := &Engine{
		cfg:          DefaultConfig(),
		store:        store,
		blobs:        blobs,
		clock:        SystemClock{},
		tokens:       RandomTokens{},
		uploadPrefix: "/api/v1/drops/",
		tracer:       otel.Tracer("quickdrop/drop"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// streaming 报告本进程内 token 的负载是否仍在传输.
func (e *Engine) streaming(token string) bool {
	_, ok := e.streams.Load(token)

	return ok
}

func (e *Engine) uploading(token string) bool {
	_, ok := e.uploads.Load(token)

	return ok
}

// cutoffs 返回 now 时刻的回收界限.
func (e *Engine) cutoffs(now time.Time) Cutoffs {
	return Cutoffs{
		ExpiredBefore:  now.Add(-e.cfg.Grace),
		ConsumedBefore: now.Add(-e.cfg.ConsumedGrace),
		PendingBefore:  now.Add(-e.cfg.PendingTTL),
	}
}

// Config 返回引擎使用的配置.
func (e *Engine) Config() configs.DropConfig {
	return e.cfg
}
