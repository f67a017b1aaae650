package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAutoDeleteTTL = 10 * time.Minute // 自动删除下载 token 的有效期
	DefaultPasswordIters = 210000           // PBKDF2 迭代次数
)

// CatalogConfig 目录文件下载相关配置.
type CatalogConfig struct {
	AutoDeleteTTL  time.Duration `mapstructure:"auto_delete_ttl"  rule:"min=1s"`
	PasswordIters  int           `mapstructure:"password_iters"   rule:"min=1000"`
	ConsumePath    string        `mapstructure:"consume_path"     rule:"required"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes" rule:"min=1"`
}

func (c *CatalogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.auto_delete_ttl", DefaultAutoDeleteTTL)
	v.SetDefault("catalog.password_iters", DefaultPasswordIters)
	v.SetDefault("catalog.consume_path", "/api/v1/download/consume/")
	v.SetDefault("catalog.max_upload_bytes", 512*1024*1024)
}
