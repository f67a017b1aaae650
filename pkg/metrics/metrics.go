// Package metrics 提供 Prometheus 监控指标.
// HTTP 指标由中间件记录，QuickDrop 生命周期指标由 drop / ratelimit / catalog 包记录.
//
// Example:
//
//	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.DropTransitions.WithLabelValues("consumed").Inc()
package metrics

import (
	"fmt"
	"net/http"
	_ "net/http/pprof" // 注册到 http.DefaultServeMux
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/quickdrop/pkg/configs"
)

const namespace = "quickdrop"

// HTTP 指标，route 标签是 gin 的路由模板.
var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "code"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency. Streaming downloads are included.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"method", "route"})

	HTTPInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})
)

// QuickDrop 生命周期指标.
var (
	// DropTransitions 状态迁移次数，event 取 created/activated/consumed/expired.
	DropTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drop_transitions_total",
			Help:      "QuickDrop state transitions",
		},
		[]string{"event"},
	)

	// ConsumeRejected 被拒绝的消费请求，reason 取 not_found/conflict/expired/gone.
	ConsumeRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drop_consume_rejected_total",
			Help:      "Rejected QuickDrop consumption attempts",
		},
		[]string{"reason"},
	)

	// StreamedBytes 已下发的负载字节数.
	StreamedBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streamed_bytes_total",
			Help:      "Payload bytes streamed to clients",
		},
		[]string{"kind"},
	)

	// ReaperDeleted 回收删除的记录数.
	ReaperDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reaper_deleted_total",
			Help:      "Drops deleted by the reaper",
		},
		[]string{"result"},
	)

	// ReaperDuration 单次回收耗时.
	ReaperDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reaper_run_duration_seconds",
			Help:      "Reaper sweep duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// RateLimitDecisions 创建限流判定，result 取 allowed/denied/fail_open/fail_closed.
	RateLimitDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Create rate limiter decisions",
		},
		[]string{"result"},
	)

	// AutoDeleteConsumed 自动删除文件下载次数.
	AutoDeleteConsumed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auto_delete_consumed_total",
			Help:      "Catalog files downloaded and deleted through an auto-delete token",
		},
	)
)

var (
	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
	initOnce sync.Once
	initErr  error
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	initOnce.Do(func() {
		// 注册标准收集器
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		// 默认标签只加在业务指标上
		reg := prometheus.WrapRegistererWith(prometheus.Labels(config.Labels), registry)

		for _, c := range []prometheus.Collector{
			HTTPRequests, HTTPDuration, HTTPInFlight,
			DropTransitions, ConsumeRejected, StreamedBytes,
			ReaperDeleted, ReaperDuration, RateLimitDecisions, AutoDeleteConsumed,
		} {
			if err := reg.Register(c); err != nil {
				initErr = fmt.Errorf("register collector: %w", err)

				return
			}
		}
	})

	return initErr
}

// Mount 在 engine 上挂载指标与 pprof 路由.
func Mount(config configs.MetricsConfig, engine *gin.Engine) {
	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}
}

// NewServer 返回独立的指标 HTTP 服务；未启用或未配置独立监听地址时返回 nil.
func NewServer(config configs.MetricsConfig) *http.Server {
	if !config.Enabled || config.Endpoint == "" {
		return nil
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	Mount(config, engine)

	return &http.Server{
		Addr:              config.Endpoint,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}
