package configs

import (
	"time"

	"github.com/spf13/viper"
)

// S3Type 对象存储后端.
type S3Type string

const (
	S3TypeMinio  S3Type = "minio"
	S3TypeMemory S3Type = "memory" // 进程内存储，仅用于开发和测试
)

// S3Config 对象存储配置，兼容 MinIO 与任意 S3 协议服务.
type S3Config struct {
	Type S3Type `mapstructure:"type" rule:"oneof=minio memory"`
	// Endpoint 可以带 scheme，https:// 会强制启用 TLS
	Endpoint     string `mapstructure:"endpoint"      rule:"required_if=Type minio"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	SessionToken string `mapstructure:"session_token"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"        rule:"required"`
	PathStyle    bool   `mapstructure:"path_style"`
	CreateBucket bool   `mapstructure:"create_bucket"`

	PresignExpiry time.Duration `mapstructure:"presign_expiry" rule:"gte=0"`
}

func (c *S3Config) setDefaults(v *viper.Viper) {
	v.SetDefault("s3.type", string(S3TypeMinio))
	v.SetDefault("s3.endpoint", "localhost:9000")
	v.SetDefault("s3.access_key", "minioadmin")
	v.SetDefault("s3.secret_key", "minioadmin")
	v.SetDefault("s3.use_ssl", false)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "quickdrop")
	v.SetDefault("s3.path_style", true)
	v.SetDefault("s3.create_bucket", true)
	v.SetDefault("s3.presign_expiry", 15*time.Minute)
}
