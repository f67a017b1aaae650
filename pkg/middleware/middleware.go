// Package middleware 提供 HTTP 中间件：日志、追踪、指标、CORS、限流、熔断与管理端认证.
package middleware

import (
	"github.com/gin-gonic/gin"
)

// NoStore 禁止客户端与代理缓存响应，分享链接的状态和内容都只在短时间内有效.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Header("Pragma", "no-cache")
		c.Next()
	}
}

// routeOf 返回匹配的路由模板，避免把 token 写进指标标签和 span 名称.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}

	return "unmatched"
}
