// Package context 在 context.Context 上挂载进程级资源（存储、调度器）和请求级 logger.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/quickdrop/pkg/internal/storage"
	dbc "github.com/yeisme/quickdrop/pkg/internal/storage/db"
	kvc "github.com/yeisme/quickdrop/pkg/internal/storage/kv"
	mqc "github.com/yeisme/quickdrop/pkg/internal/storage/mq"
	"github.com/yeisme/quickdrop/pkg/log"
	"github.com/yeisme/quickdrop/pkg/scheduler"
)

// key 每种值类型对应一个独立的 key.
type key[T any] struct{}

func with[T any](ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, key[T]{}, v)
}

func get[T any](ctx context.Context) (T, bool) {
	v, ok := ctx.Value(key[T]{}).(T)

	return v, ok
}

// WithStorageManager 挂载存储管理器.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return with(ctx, mgr)
}

// GetManager 未挂载时返回 nil.
func GetManager(ctx context.Context) *storage.Manager {
	mgr, _ := get[*storage.Manager](ctx)

	return mgr
}

// WithScheduler sched 可以为 nil（调度器未启用）.
func WithScheduler(ctx context.Context, sched *scheduler.Scheduler) context.Context {
	return with(ctx, sched)
}

func GetScheduler(ctx context.Context) *scheduler.Scheduler {
	sched, _ := get[*scheduler.Scheduler](ctx)

	return sched
}

func GetDBClient(ctx context.Context) *dbc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.DB
	}

	return nil
}

func GetKVClient(ctx context.Context) *kvc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.KV
	}

	return nil
}

func GetMQClient(ctx context.Context) *mqc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.MQ
	}

	return nil
}

// WithLogger 挂载请求级 logger，例如附带了 request_id 的 logger.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return with(ctx, l)
}

// WithTraceContext 当 ctx 携带有效 span 时，为 logger 附加 trace_id 与 span_id.
func WithTraceContext(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}

	return l.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
}

// Logger 返回请求级 logger（没有时回退到全局 logger），并附带追踪信息.
func Logger(ctx context.Context) *zerolog.Logger {
	l, ok := get[zerolog.Logger](ctx)
	if !ok {
		l = *log.Logger()
	}

	l = WithTraceContext(ctx, l)

	return &l
}
