package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yeisme/quickdrop/pkg/cache"
	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/catalog"
	"github.com/yeisme/quickdrop/pkg/internal/drop"
	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/ratelimit"
	"github.com/yeisme/quickdrop/pkg/internal/storage"
	"github.com/yeisme/quickdrop/pkg/queue"
)

// kvPrefix 本服务在共享 KV 中使用的键前缀.
const kvPrefix = "quickdrop:"

// Services 业务服务集合，HTTP 服务与 CLI 共用.
type Services struct {
	Drops   *drop.Engine
	Reaper  *drop.Reaper
	Catalog *catalog.Service
	Events  *queue.Emitter

	closers []func() error
}

// NewServices 在已初始化的存储之上装配业务服务.
func NewServices(ctx context.Context, cfg *configs.AppConfig, mgr *storage.Manager) (*Services, error) {
	if mgr == nil || mgr.GetDBClient() == nil {
		return nil, errors.New("storage manager not initialized")
	}

	db := mgr.GetDBClient().GetDB()

	if cfg.DB.AutoMigrate {
		if err := model.AutoMigrate(ctx, db); err != nil {
			return nil, err
		}
	}

	s := &Services{}

	if mq := mgr.GetMQClient(); mq != nil {
		s.Events = queue.NewEmitter(mq, cfg.Events)
	}

	counters, closeCounters, err := ratelimit.NewStoreFromConfig(cfg.Drop.Limiter, db, cfg.KV.Redis)
	if err != nil {
		return nil, fmt.Errorf("init rate limiter: %w", err)
	}

	if closeCounters != nil {
		s.closers = append(s.closers, closeCounters)
	}

	opts := []drop.Option{
		drop.WithConfig(cfg.Drop),
		drop.WithLimiter(ratelimit.New(counters, cfg.Drop.Limiter)),
		drop.WithEvents(s.Events),
		drop.WithPresignExpiry(cfg.S3.PresignExpiry),
		drop.WithPublicURL(strings.TrimRight(cfg.Server.PublicURL, "/")),
	}

	if kv := mgr.GetKVClient(); kv != nil {
		c := cache.NewCache(kv, cache.WithPrefix(kvPrefix))
		opts = append(opts, drop.WithTombstones(cache.NewTombstones(c, cfg.Drop.TombstoneTTL)))
	}

	s.Drops = drop.NewEngine(drop.NewGormStore(db), mgr.GetBlobStore(), opts...)
	s.Reaper = drop.NewReaper(s.Drops)
	s.Catalog = catalog.NewService(
		catalog.NewGormStore(db),
		mgr.GetBlobStore(),
		catalog.WithConfig(cfg.Catalog),
		catalog.WithEvents(s.Events),
		catalog.WithPresignExpiry(cfg.S3.PresignExpiry),
	)

	return s, nil
}

// Close 释放服务持有的额外连接.
func (s *Services) Close() error {
	var errs []error

	for _, c := range s.closers {
		errs = append(errs, c())
	}

	return errors.Join(errs...)
}
