package configs

import (
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 服务配置.
type ServerConfig struct {
	Host         string `mapstructure:"host"          rule:"ip"`
	Port         int    `mapstructure:"port"          rule:"min=1,max=65535"`
	Debug        bool   `mapstructure:"debug"`
	ReloadConfig bool   `mapstructure:"reload_config"`

	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" rule:"gt=0"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"        rule:"gte=0"`
	// ShutdownGrace 收到信号后等待在途请求完成的时长
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" rule:"gt=0"`

	// PublicURL 生成分享链接时使用的外部地址，为空时返回相对路径
	PublicURL string `mapstructure:"public_url" rule:"omitempty,url"`

	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig 浏览器跨域访问.
type CORSConfig struct {
	// AllowOrigins 为空或包含 "*" 时允许任意来源
	AllowOrigins []string      `mapstructure:"allow_origins"`
	MaxAge       time.Duration `mapstructure:"max_age" rule:"gte=0"`
}

// Addr 返回监听地址 host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.reload_config", true)
	v.SetDefault("server.read_header_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_grace", 10*time.Second)
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.cors.allow_origins", []string{"*"})
	v.SetDefault("server.cors.max_age", 12*time.Hour)
}
