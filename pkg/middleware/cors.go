package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/quickdrop/pkg/configs"
)

// HeaderFileName 下载响应中携带原始文件名的自定义头.
const HeaderFileName = "X-QuickDrop-Filename"

// CORS 跨域配置. 浏览器需要读取下载文件名，因此额外暴露相关响应头.
func CORS(cfg configs.CORSConfig, auth configs.AuthConfig) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: append([]string{"Origin", "Content-Type", "Content-Length", "Authorization", HeaderRequestID},
			auth.IdentityHeaders()...),
		ExposeHeaders: []string{"Content-Disposition", "Content-Length", HeaderFileName, HeaderRequestID},
		MaxAge:        cfg.MaxAge,
	}

	if len(cfg.AllowOrigins) == 0 || slices.Contains(cfg.AllowOrigins, "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = cfg.AllowOrigins
	}

	return cors.New(conf)
}
