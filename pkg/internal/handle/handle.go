// Package handle 提供 HTTP 请求处理器：QuickDrop 生命周期、目录文件下载、健康检查与调度器管理.
package handle

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/quickdrop/pkg/context"
	"github.com/yeisme/quickdrop/pkg/internal/catalog"
	"github.com/yeisme/quickdrop/pkg/internal/drop"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	"github.com/yeisme/quickdrop/pkg/middleware"
)

// Handlers 聚合处理器依赖，由 app 层注入.
type Handlers struct {
	Drops   *drop.Engine
	Reaper  *drop.Reaper
	Catalog *catalog.Service
}

// NoRoute 未匹配路由统一返回 JSON 404.
func NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": types.PublicMessage(types.ErrNotFound)})
}

// renderError 按错误分类写出 JSON 错误，5xx 记录完整错误链.
func renderError(c *gin.Context, err error) {
	status := types.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		ctxPkg.Logger(c.Request.Context()).Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": types.PublicMessage(err)})
}

// streamBody 把负载流写给客户端，附带下载相关的响应头.
// 写入中断只记录日志，此时状态码已经发出.
func streamBody(c *gin.Context, body io.Reader, fileName, contentType string, size int64) {
	h := c.Writer.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.FormatInt(size, 10))
	h.Set("Content-Disposition", contentDisposition(fileName))
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set(middleware.HeaderFileName, url.PathEscape(fileName))

	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, body); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		ctxPkg.Logger(c.Request.Context()).Warn().Err(err).Str("route", c.FullPath()).Msg("stream interrupted")
	}
}

// contentDisposition 生成 attachment 头，同时提供 ASCII 回退名与 RFC 5987 编码名.
func contentDisposition(name string) string {
	return `attachment; filename="` + asciiFallback(name) + `"; filename*=UTF-8''` + encodeExtValue(name)
}

func asciiFallback(name string) string {
	var b strings.Builder

	for _, r := range name {
		switch {
		case r == '"' || r == '\\' || r < 0x20 || r > 0x7e:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "download"
	}

	return b.String()
}

// encodeExtValue 按 RFC 5987 attr-char 集合做百分号编码.
func encodeExtValue(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isAttrChar(ch) {
			b.WriteByte(ch)

			continue
		}

		b.WriteByte('%')
		b.WriteByte(hex[ch>>4])
		b.WriteByte(hex[ch&0x0f])
	}

	return b.String()
}

func isAttrChar(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	}

	return strings.IndexByte("!#$&+-.^_`|~", ch) >= 0
}
