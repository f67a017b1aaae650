// Package db 打开 GORM 连接. 驱动按构建标签注册，no_mysql、no_postgres、no_sqlite 可以裁掉对应驱动.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	gormPrometheus "gorm.io/plugin/prometheus"

	"github.com/yeisme/quickdrop/pkg/configs"
	nlog "github.com/yeisme/quickdrop/pkg/log"
)

// driver 描述一种数据库驱动.
type driver struct {
	name   string
	dial   func(dsn string) gorm.Dialector
	layout func(cfg configs.DBConfig) string
	// single 为 true 时连接池只保留一个连接（SQLite 单写者）
	single bool
}

var drivers = map[configs.DBType]driver{}

func register(d driver, types ...configs.DBType) {
	for _, t := range types {
		drivers[t] = d
	}
}

// GetRegisteredDBTypes 返回编译进来的数据库类型.
func GetRegisteredDBTypes() []configs.DBType {
	types := make([]configs.DBType, 0, len(drivers))
	for t := range drivers {
		types = append(types, t)
	}

	return types
}

// DSN 返回连接串，显式配置的 db.dsn 优先.
func DSN(cfg configs.DBConfig) (string, error) {
	d, ok := drivers[cfg.Type]
	if !ok {
		return "", fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	return d.layout(cfg), nil
}

// Client 包装 GORM DB.
type Client struct {
	*gorm.DB
}

// Options 控制连接时的可选行为.
type Options struct {
	Debug   bool // 打印所有 SQL
	Metrics bool // 注册 gorm prometheus 插件
}

// New 按配置打开数据库并检测连通性.
func New(ctx context.Context, cfg configs.DBConfig, opts Options) (*Client, error) {
	d, ok := drivers[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	dsn, _ := DSN(cfg)

	level := logger.Warn
	if opts.Debug {
		level = logger.Info
	}

	db, err := gorm.Open(d.dial(dsn), &gorm.Config{
		Logger: logger.New(nlog.Logger(), logger.Config{
			SlowThreshold:             cfg.SlowThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt: true,
		NowFunc:     func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	if d.single {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("ping %s: %w", d.name, err), sqlDB.Close())
	}

	client := &Client{DB: db}

	if opts.Metrics {
		err := client.Use(gormPrometheus.New(gormPrometheus.Config{
			DBName:          cfg.Database,
			RefreshInterval: 15,
		}))
		if err != nil {
			return nil, errors.Join(fmt.Errorf("register gorm metrics: %w", err), client.Close())
		}
	}

	l := nlog.Component("db")
	l.Info().
		Str("driver", d.name).
		Str("type", string(cfg.Type)).
		Str("database", cfg.Database).
		Msg("database connected")

	return client, nil
}

// GetDB 返回 GORM DB 实例.
func (c *Client) GetDB() *gorm.DB {
	return c.DB
}

// HealthCheck 检测数据库连通性.
func (c *Client) HealthCheck(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
