package configs

import (
	"time"

	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	MQTypeNATS  MQType = "nats"
	MQTypeRedis MQType = "redis"
	// MQTypeMemory 进程内 gochannel，单实例部署和测试使用.
	MQTypeMemory MQType = "memory"
)

// MQConfig 生命周期事件使用的消息队列.
type MQConfig struct {
	Type MQType `mapstructure:"type" rule:"oneof=nats redis memory"`
	// BufferSize 订阅输出通道的缓冲大小
	BufferSize int           `mapstructure:"buffer_size" rule:"gte=0"`
	NATS       MQNATSConfig  `mapstructure:"nats"`
	Redis      MQRedisConfig `mapstructure:"redis"`
}

// MQNATSConfig NATS 连接与 JetStream 配置.
type MQNATSConfig struct {
	URL           string        `mapstructure:"url"`
	ClusterURLs   []string      `mapstructure:"cluster_urls"`
	ClientName    string        `mapstructure:"client_name"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	JWT           string        `mapstructure:"jwt"`
	Seed          string        `mapstructure:"seed"` // 与 JWT 配对的 NKey seed
	MaxReconnects int           `mapstructure:"max_reconnects"  rule:"gte=-1"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	PingInterval  time.Duration `mapstructure:"ping_interval"`
	MaxPingsOut   int           `mapstructure:"max_pings_out"   rule:"gte=0"`
	ReconnectBuf  int           `mapstructure:"reconnect_buf"`
	StrictConnect bool          `mapstructure:"strict_connect"` // 启动时连接失败直接报错
	Randomize     bool          `mapstructure:"randomize"`      // 集群地址随机选择

	JetStream MQJetStreamConfig `mapstructure:"jetstream"`
}

// MQJetStreamConfig JetStream 持久化参数.
type MQJetStreamConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	AutoProvision bool   `mapstructure:"auto_provision"`
	TrackMsgID    bool   `mapstructure:"track_msg_id"`
	AckAsync      bool   `mapstructure:"ack_async"`
	DurablePrefix string `mapstructure:"durable_prefix"`
}

// MQRedisConfig Redis Pub/Sub 配置.
type MQRedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"        rule:"min=0,max=15"`
	PoolSize int    `mapstructure:"pool_size" rule:"gte=0"`
}

// URLs 返回连接地址，配置了集群地址时优先使用.
func (c MQNATSConfig) URLs() []string {
	if len(c.ClusterURLs) > 0 {
		return c.ClusterURLs
	}

	return []string{c.URL}
}

func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeMemory)
	v.SetDefault("mq.buffer_size", 1024)

	v.SetDefault("mq.nats.url", "nats://localhost:4222")
	v.SetDefault("mq.nats.cluster_urls", []string{})
	v.SetDefault("mq.nats.client_name", "quickdrop")
	v.SetDefault("mq.nats.max_reconnects", 5)
	v.SetDefault("mq.nats.reconnect_wait", 5*time.Second)
	v.SetDefault("mq.nats.ping_interval", 20*time.Second)
	v.SetDefault("mq.nats.max_pings_out", 3)
	v.SetDefault("mq.nats.reconnect_buf", 32*1024)
	v.SetDefault("mq.nats.strict_connect", false)
	v.SetDefault("mq.nats.randomize", true)
	v.SetDefault("mq.nats.jetstream.enabled", true)
	v.SetDefault("mq.nats.jetstream.auto_provision", true)
	v.SetDefault("mq.nats.jetstream.track_msg_id", true)
	v.SetDefault("mq.nats.jetstream.ack_async", false)
	v.SetDefault("mq.nats.jetstream.durable_prefix", "quickdrop")

	v.SetDefault("mq.redis.addr", "localhost:6379")
	v.SetDefault("mq.redis.password", "")
	v.SetDefault("mq.redis.db", 0)
	v.SetDefault("mq.redis.pool_size", 10)
}
