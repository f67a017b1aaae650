// Package model 定义持久化到数据库的 gorm 模型.
package model

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// All 返回需要迁移的全部模型.
func All() []any {
	return []any{&Drop{}, &File{}, &RateLimitWindow{}}
}

// AutoMigrate 迁移全部模型.
func AutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return nil
}
