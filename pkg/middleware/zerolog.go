package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yeisme/quickdrop/pkg/context"
	"github.com/yeisme/quickdrop/pkg/log"
)

// HeaderRequestID 请求 ID 头，客户端未提供时由服务端生成.
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "quickdrop.request_id"

// AccessLog 为请求挂载带 request_id 的 logger 并记录访问日志.
// 只记录路由模板，分享 token 不会出现在日志里；健康检查成功时降为 debug.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}

		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)

		reqLogger := log.Logger().With().Str("request_id", id).Logger()
		c.Request = c.Request.WithContext(context.WithLogger(c.Request.Context(), reqLogger))

		c.Next()

		status := c.Writer.Status()
		route := routeOf(c)
		l := context.Logger(c.Request.Context())

		var ev *zerolog.Event

		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		case strings.HasPrefix(route, "/health"):
			ev = l.Debug()
		default:
			ev = l.Info()
		}

		ev = ev.Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if len(c.Errors) > 0 {
			ev = ev.Str("error", c.Errors.Last().Error())
		}

		ev.Msg("http")
	}
}

// RequestID 返回当前请求的 ID.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
