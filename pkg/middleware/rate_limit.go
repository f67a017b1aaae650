package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/ratelimit"
)

const limiterSweepDur = time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware 返回一个基于令牌桶的全局请求限流中间件.
// 它只用于削峰，创建 QuickDrop 的固定窗口配额由 ratelimit 包单独执行.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	idleTTL := cfg.IdleTTL
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}

	exempt := func(c *gin.Context) bool {
		for _, p := range cfg.Exempt {
			if p != "" && strings.HasPrefix(c.Request.URL.Path, p) {
				return true
			}
		}

		return false
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))
	if keyMode == "global" || keyMode == "" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !exempt(c) && !limiter.Allow() {
				abortTooMany(c)

				return
			}

			c.Next()
		}
	}

	var (
		mu       sync.Mutex
		visitors = map[string]*visitor{}
		lastScan = time.Now()
	)

	getLimiter := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()

		// 顺带清理长时间未出现的 key
		if now.Sub(lastScan) > limiterSweepDur {
			for k, v := range visitors {
				if now.Sub(v.lastSeen) > idleTTL {
					delete(visitors, k)
				}
			}

			lastScan = now
		}

		v, ok := visitors[key]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			visitors[key] = v
		}

		v.lastSeen = now

		return v.limiter
	}

	return func(c *gin.Context) {
		if exempt(c) {
			c.Next()

			return
		}

		var key string

		if h, ok := strings.CutPrefix(keyMode, "header:"); ok {
			key = strings.TrimSpace(c.GetHeader(h))
		}

		if key == "" {
			key = clientIP(c)
		}

		if !getLimiter(key).Allow() {
			abortTooMany(c)

			return
		}

		c.Next()
	}
}

func abortTooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests,
		gin.H{"error": "rate limit exceeded, request too frequent, please try again later"})
}

// clientIP 优先使用代理头中的客户端地址，再回退到连接地址.
func clientIP(c *gin.Context) string {
	if p := ratelimit.Principal(c.Request.Header); p != ratelimit.UnknownPrincipal {
		return p
	}

	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	return ratelimit.UnknownPrincipal
}
