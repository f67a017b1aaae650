// Package app 提供应用程序的初始化、装配与生命周期管理.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/audit"
	"github.com/yeisme/quickdrop/pkg/internal/handle"
	"github.com/yeisme/quickdrop/pkg/internal/jobs"
	"github.com/yeisme/quickdrop/pkg/internal/router"
	"github.com/yeisme/quickdrop/pkg/internal/storage"
	"github.com/yeisme/quickdrop/pkg/log"
	"github.com/yeisme/quickdrop/pkg/metrics"
	"github.com/yeisme/quickdrop/pkg/middleware"
	"github.com/yeisme/quickdrop/pkg/queue"
	"github.com/yeisme/quickdrop/pkg/scheduler"
	"github.com/yeisme/quickdrop/pkg/tracing"
)

type App struct {
	Engine *gin.Engine

	config    *configs.AppConfig
	manager   *storage.Manager
	services  *Services
	scheduler *scheduler.Scheduler
	audit     *audit.Subscriber

	metricsSrv *http.Server
}

// Bootstrap 加载配置并初始化日志、追踪与指标，CLI 子命令共用.
func Bootstrap(configPath string) (*configs.AppConfig, error) {
	if err := configs.InitConfig(configPath); err != nil {
		return nil, fmt.Errorf("init config: %w", err)
	}

	cfg := configs.GetConfig()
	log.Init()

	if err := tracing.InitTracer(cfg.Tracing); err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	if err := metrics.InitMetrics(cfg.Metrics); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return cfg, nil
}

// OpenStorage 按配置打开全部存储.
func OpenStorage(ctx context.Context, cfg *configs.AppConfig) (*storage.Manager, error) {
	var reg prometheus.Registerer
	if cfg.Metrics.Enabled {
		reg = metrics.GetRegistry()
	}

	return storage.New(ctx, cfg, reg)
}

// NewApp 装配 HTTP 服务、后台任务与审计订阅.
func NewApp(ctx context.Context, cfg *configs.AppConfig) (*App, error) {
	manager, err := OpenStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	a := &App{config: cfg, manager: manager}

	a.services, err = NewServices(ctx, cfg, manager)
	if err != nil {
		_ = a.Close()

		return nil, err
	}

	if cfg.Scheduler.Enabled {
		a.scheduler, err = scheduler.NewScheduler()
		if err != nil {
			_ = a.Close()

			return nil, fmt.Errorf("init scheduler: %w", err)
		}

		if err := jobs.RegisterJobs(a.scheduler, a.services.Reaper, cfg.Scheduler); err != nil {
			_ = a.Close()

			return nil, fmt.Errorf("register jobs: %w", err)
		}
	}

	if cfg.Events.Enabled && cfg.Events.Audit {
		a.audit, err = audit.New(manager.GetMQClient(), queue.AllTopics())
		if err != nil {
			_ = a.Close()

			return nil, fmt.Errorf("init audit subscriber: %w", err)
		}
	}

	l := log.Logger()
	gin.DefaultWriter = log.NewGinWriter(l, zerolog.InfoLevel)
	gin.DefaultErrorWriter = log.NewGinWriter(l, zerolog.ErrorLevel)

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.AccessLog(),
		middleware.CORS(cfg.Server.CORS, cfg.Auth),
		middleware.Tracing(),
		middleware.Metrics(),
		middleware.RateLimitMiddleware(cfg.RateLimit),
		middleware.Inject(manager, a.scheduler),
	)

	router.Setup(engine, &handle.Handlers{
		Drops:   a.services.Drops,
		Reaper:  a.services.Reaper,
		Catalog: a.services.Catalog,
	}, cfg)

	a.metricsSrv = metrics.NewServer(cfg.Metrics)
	if cfg.Metrics.Enabled && a.metricsSrv == nil {
		metrics.Mount(cfg.Metrics, engine)
	}

	a.Engine = engine

	return a, nil
}

// Run 启动 HTTP 服务与后台组件，ctx 结束后优雅关闭.
func (a *App) Run(ctx context.Context) error {
	l := log.Logger()

	srv := &http.Server{
		Addr:              a.config.Server.Addr(),
		Handler:           a.Engine,
		ReadHeaderTimeout: a.config.Server.ReadHeaderTimeout,
		IdleTimeout:       a.config.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		l.Info().Str("addr", srv.Addr).Msg("http server listening")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	if a.metricsSrv != nil {
		g.Go(func() error {
			l.Info().Str("addr", a.metricsSrv.Addr).Msg("metrics server listening")

			if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}

			return nil
		})
	}

	if a.scheduler != nil {
		a.scheduler.Start()
	}

	if a.audit != nil {
		g.Go(func() error { return a.audit.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), a.config.Server.ShutdownGrace)
		defer cancel()

		l.Info().Msg("shutting down")

		errs := []error{srv.Shutdown(shutdownCtx)}
		if a.metricsSrv != nil {
			errs = append(errs, a.metricsSrv.Shutdown(shutdownCtx))
		}

		if a.scheduler != nil {
			errs = append(errs, a.scheduler.Stop())
		}

		errs = append(errs, tracing.ShutdownTracer(shutdownCtx))

		return errors.Join(errs...)
	})

	err := g.Wait()

	return errors.Join(err, a.Close())
}

// Close 释放存储与服务资源，可重复调用.
func (a *App) Close() error {
	var errs []error

	if a.audit != nil {
		errs = append(errs, a.audit.Close())
		a.audit = nil
	}

	if a.services != nil {
		errs = append(errs, a.services.Close())
		a.services = nil
	}

	if a.manager != nil {
		errs = append(errs, a.manager.Close())
		a.manager = nil
	}

	return errors.Join(errs...)
}
