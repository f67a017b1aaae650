package drop

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/types"
)

// GormStore 基于 gorm 的记录存储.
//
// Update 在事务内先加行锁读取（sqlite 忽略 FOR UPDATE），
// 再以原状态为条件写回，RowsAffected 为 0 说明被并发修改，按状态冲突处理.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, token string) (*model.Drop, error) {
	var d model.Drop

	err := s.db.WithContext(ctx).Where("token = ?", token).Take(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("drop %s: %w", tokenLabel(token), types.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get drop: %w", err)
	}

	return &d, nil
}

func (s *GormStore) Insert(ctx context.Context, d *model.Drop) error {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(d)
	if res.Error != nil {
		return fmt.Errorf("insert drop: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		return ErrDuplicate
	}

	return nil
}

func (s *GormStore) Update(ctx context.Context, token string, fn Mutator) (*model.Drop, error) {
	var (
		out           *model.Drop
		fnErr         error
		errLostUpdate = errors.New("lost update")
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur model.Drop

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("token = ?", token).Take(&cur).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("drop %s: %w", tokenLabel(token), types.ErrNotFound)
		}

		if err != nil {
			return fmt.Errorf("lock drop: %w", err)
		}

		d := cur

		changed, ferr := fn(&d)
		out, fnErr = &d, ferr

		if !changed {
			return nil
		}

		res := tx.Model(&model.Drop{}).
			Where("token = ? AND status = ?", token, cur.Status).
			Updates(map[string]any{
				"status":      d.Status,
				"expires_at":  d.ExpiresAt,
				"consumed_at": d.ConsumedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("update drop: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			return errLostUpdate
		}

		return nil
	})

	if errors.Is(err, errLostUpdate) {
		return nil, fmt.Errorf("drop %s changed concurrently: %w", tokenLabel(token), types.ErrStateConflict)
	}

	if err != nil {
		return nil, err
	}

	return out, fnErr
}

func (s *GormStore) Delete(ctx context.Context, token string) error {
	if err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&model.Drop{}).Error; err != nil {
		return fmt.Errorf("delete drop: %w", err)
	}

	return nil
}

func (s *GormStore) ListReclaimable(ctx context.Context, c Cutoffs, limit int) ([]model.Drop, error) {
	var drops []model.Drop

	q := s.db.WithContext(ctx).
		Where("status = ?"+
			" OR (status = ? AND expires_at <= ?)"+
			" OR (status = ? AND consumed_at <= ?)"+
			" OR (status = ? AND created_at <= ?)",
			model.DropExpired,
			model.DropActive, c.ExpiredBefore,
			model.DropConsumed, c.ConsumedBefore,
			model.DropPending, c.PendingBefore).
		Order("created_at")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Find(&drops).Error; err != nil {
		return nil, fmt.Errorf("list reclaimable drops: %w", err)
	}

	return drops, nil
}
