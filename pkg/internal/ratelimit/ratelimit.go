// Package ratelimit 实现创建 QuickDrop 时的固定窗口限流.
//
// 主体（通常是客户端 IP）经过 trim + 小写后取 sha256 作为计数键，
// 计数保存在可替换的 CounterStore 中（数据库、Redis 或内存）.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	nlog "github.com/yeisme/quickdrop/pkg/log"
	"github.com/yeisme/quickdrop/pkg/metrics"
)

const (
	UnknownPrincipal = "unknown"
	maxPrincipalLen  = 128
)

// Decision 一次计数的结果.
type Decision struct {
	Allowed     bool
	Count       int
	WindowStart time.Time
}

// CounterStore 原子地执行"窗口过期则重置，否则未达上限时加一".
type CounterStore interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error)
}

// Limiter 固定窗口限流器.
type Limiter struct {
	store CounterStore
	cfg   configs.LimiterConfig
	now   func() time.Time
}

// Option 限流器选项.
type Option func(*Limiter)

// WithNow 替换时间源.
func WithNow(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New 创建限流器.
func New(store CounterStore, cfg configs.LimiterConfig, opts ...Option) *Limiter {
	l := &Limiter{store: store, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Allow 计数一次，超出上限时返回 types.ErrRateLimited.
// 存储出错时按 FailOpen 决定放行或拒绝.
func (l *Limiter) Allow(ctx context.Context, principal string) error {
	if !l.cfg.Enabled {
		return nil
	}

	key := Key(principal)

	d, err := l.store.Hit(ctx, key, l.now(), l.cfg.Window, l.cfg.Max)
	if err != nil {
		if l.cfg.FailOpen {
			metrics.RateLimitDecisions.WithLabelValues("fail_open").Inc()
			nlog.Logger().Warn().Err(err).Msg("rate limiter unavailable, allowing request")

			return nil
		}

		metrics.RateLimitDecisions.WithLabelValues("fail_closed").Inc()

		return fmt.Errorf("rate limiter unavailable: %v: %w", err, types.ErrRateLimited)
	}

	if !d.Allowed {
		metrics.RateLimitDecisions.WithLabelValues("denied").Inc()

		return fmt.Errorf("%d creates since %s: %w", d.Count, d.WindowStart.Format(time.RFC3339), types.ErrRateLimited)
	}

	metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()

	return nil
}

// Key 返回规范化主体的 sha256 十六进制串，空主体按 "unknown" 计.
func Key(principal string) string {
	p := strings.ToLower(strings.TrimSpace(principal))
	if p == "" {
		p = UnknownPrincipal
	}

	sum := sha256.Sum256([]byte(p))

	return hex.EncodeToString(sum[:])
}

// Principal 按 cf-connecting-ip、x-real-ip、x-forwarded-for 首项的顺序取客户端标识.
func Principal(h http.Header) string {
	candidates := []string{
		h.Get("Cf-Connecting-Ip"),
		h.Get("X-Real-Ip"),
	}

	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		candidates = append(candidates, first)
	}

	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}

		if len(c) > maxPrincipalLen {
			c = c[:maxPrincipalLen]
		}

		return c
	}

	return UnknownPrincipal
}

// decide 固定窗口的纯函数判定，各存储共用.
func decide(start time.Time, count int, exists bool, now time.Time, window time.Duration, limit int) (Decision, bool) {
	if !exists || !now.Before(start.Add(window)) {
		return Decision{Allowed: true, Count: 1, WindowStart: now}, true
	}

	if count < limit {
		return Decision{Allowed: true, Count: count + 1, WindowStart: start}, true
	}

	return Decision{Allowed: false, Count: count, WindowStart: start}, false
}
