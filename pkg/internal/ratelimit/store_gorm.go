package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/quickdrop/pkg/internal/model"
)

const insertRetries = 3

// GormStore 基于数据库的计数存储，多实例共享.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error) {
	for range insertRetries {
		var (
			d        Decision
			inserted = true
		)

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var w model.RateLimitWindow

			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("window_key = ?", key).Take(&w).Error
			exists := err == nil

			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("load window: %w", err)
			}

			var write bool

			d, write = decide(w.WindowStart, w.Count, exists, now, window, limit)
			if !write {
				return nil
			}

			if exists {
				return tx.Model(&model.RateLimitWindow{}).Where("window_key = ?", key).
					Updates(map[string]any{"window_start": d.WindowStart, "count": d.Count}).Error
			}

			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&model.RateLimitWindow{Key: key, WindowStart: d.WindowStart, Count: d.Count})
			if res.Error != nil {
				return res.Error
			}

			// 并发插入时另一方已创建记录，重新读取后计数
			inserted = res.RowsAffected == 1

			return nil
		})
		if err != nil {
			return Decision{}, err
		}

		if inserted {
			return d, nil
		}
	}

	return Decision{}, errors.New("rate limit window contended")
}
