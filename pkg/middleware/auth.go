package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/quickdrop/pkg/configs"
)

const principalKey = "quickdrop.principal"

// AdminOnly 管理接口认证.
//
// 先校验 Authorization: Bearer 静态 token，再按顺序读取反向代理注入的身份头.
// 设置了 admin_emails 时，名单外的邮箱返回 403.
func AdminOnly(conf configs.AuthConfig) gin.HandlerFunc {
	if !conf.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	allow := make(map[string]bool, len(conf.AdminEmails))
	for _, e := range conf.AdminEmails {
		if e = normalizeEmail(e); e != "" {
			allow[e] = true
		}
	}

	headers := conf.IdentityHeaders()

	return func(c *gin.Context) {
		if bearer, ok := bearerToken(c.GetHeader("Authorization")); ok {
			if !matchToken(bearer, conf.Tokens) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}

			c.Set(principalKey, "token")
			c.Next()

			return
		}

		var email string
		for _, h := range headers {
			if email = strings.TrimSpace(c.GetHeader(h)); email != "" {
				break
			}
		}

		switch {
		case email == "":
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		case len(allow) > 0 && !allow[normalizeEmail(email)]:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		default:
			c.Set(principalKey, email)
			c.Next()
		}
	}
}

// Principal 返回通过认证的调用方：管理员邮箱或 "token"，未认证时为空.
func Principal(c *gin.Context) string {
	return c.GetString(principalKey)
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

func bearerToken(h string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	return strings.TrimSpace(token), true
}

func matchToken(got string, tokens []string) bool {
	found := 0
	for _, t := range tokens {
		found |= subtle.ConstantTimeCompare([]byte(got), []byte(t))
	}

	return got != "" && found == 1
}
