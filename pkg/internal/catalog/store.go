package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/types"
)

// Store 目录文件存储.
type Store interface {
	Get(ctx context.Context, id string) (*model.File, error)
	Create(ctx context.Context, f *model.File) error
	// Update 在事务内读取并修改记录，fn 返回错误时不写回.
	Update(ctx context.Context, id string, fn func(f *model.File) error) (*model.File, error)
	List(ctx context.Context, limit int) ([]model.File, error)
}

// GormStore 基于 gorm 的目录存储.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(ctx context.Context, id string) (*model.File, error) {
	var f model.File

	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("file %s: %w", id, types.ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	return &f, nil
}

func (s *GormStore) Create(ctx context.Context, f *model.File) error {
	if err := s.db.WithContext(ctx).Create(f).Error; err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	return nil
}

func (s *GormStore) Update(ctx context.Context, id string, fn func(f *model.File) error) (*model.File, error) {
	var out model.File

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&out).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("file %s: %w", id, types.ErrNotFound)
		}

		if err != nil {
			return fmt.Errorf("lock file: %w", err)
		}

		if err := fn(&out); err != nil {
			return err
		}

		// Select("*") 让零值与 nil 字段也被写回
		return tx.Model(&out).Select("*").Updates(&out).Error
	})
	if err != nil {
		return nil, err
	}

	return &out, nil
}

func (s *GormStore) List(ctx context.Context, limit int) ([]model.File, error) {
	var files []model.File

	q := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Find(&files).Error; err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return files, nil
}

// MemoryStore 进程内目录存储.
type MemoryStore struct {
	mu    sync.Mutex
	files map[string]model.File
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]model.File)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*model.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, types.ErrNotFound)
	}

	return &f, nil
}

func (s *MemoryStore) Create(ctx context.Context, f *model.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[f.ID]; ok {
		return fmt.Errorf("file %s already exists", f.ID)
	}

	s.files[f.ID] = *f

	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(f *model.File) error) (*model.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, types.ErrNotFound)
	}

	if err := fn(&f); err != nil {
		return nil, err
	}

	s.files[id] = f

	return &f, nil
}

func (s *MemoryStore) List(ctx context.Context, limit int) ([]model.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.File, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}
