package configs

import "github.com/spf13/viper"

// DefaultIdentityHeaders oauth2-proxy 等反向代理注入的身份头，按顺序读取.
var DefaultIdentityHeaders = []string{"X-Auth-Request-Email", "X-Forwarded-Email"}

// AuthConfig 管理接口认证.
//
// 分享与消费接口依靠 token 本身授权，不受这里约束.
type AuthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Headers 身份头列表，为空时使用 DefaultIdentityHeaders
	Headers []string `mapstructure:"headers"`
	// AdminEmails 为空表示任何带身份头的请求都可访问
	AdminEmails []string `mapstructure:"admin_emails" rule:"dive,email"`
	// Tokens 供脚本调用的静态 Bearer token
	Tokens []string `mapstructure:"tokens" rule:"dive,min=16"`
}

// IdentityHeaders 返回生效的身份头列表.
func (c AuthConfig) IdentityHeaders() []string {
	if len(c.Headers) == 0 {
		return DefaultIdentityHeaders
	}

	return c.Headers
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.headers", DefaultIdentityHeaders)
	v.SetDefault("auth.admin_emails", []string{})
	v.SetDefault("auth.tokens", []string{})
}
