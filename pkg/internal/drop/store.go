package drop

import (
	"context"
	"errors"
	"time"

	"github.com/yeisme/quickdrop/pkg/internal/model"
)

// ErrDuplicate token 已存在.
var ErrDuplicate = errors.New("drop: duplicate token")

// Mutator 在事务内修改记录，changed 为 true 时写回，err 原样返回给调用方.
// 返回 (true, err) 表示提交修改后仍然以 err 失败，用于"标记过期并拒绝".
type Mutator func(d *model.Drop) (changed bool, err error)

// Store QuickDrop 记录存储.
type Store interface {
	// Get 读取记录，不存在时返回包装了 types.ErrNotFound 的错误.
	Get(ctx context.Context, token string) (*model.Drop, error)
	// Insert 插入新记录，token 冲突时返回 ErrDuplicate.
	Insert(ctx context.Context, d *model.Drop) error
	// Update 在事务内读取并修改记录，同一 token 的并发修改只有一个能基于同一状态成功.
	Update(ctx context.Context, token string, fn Mutator) (*model.Drop, error)
	// Delete 删除记录，不存在时返回 nil.
	Delete(ctx context.Context, token string) error
	// ListReclaimable 返回满足 Cutoffs 的记录，按 createdAt 升序.
	ListReclaimable(ctx context.Context, c Cutoffs, limit int) ([]model.Drop, error)
}

// Cutoffs 回收界限. expired 状态的记录总是可回收.
type Cutoffs struct {
	ExpiredBefore  time.Time // active 且 expiresAt 不晚于此
	ConsumedBefore time.Time // consumed 且 consumedAt 不晚于此
	PendingBefore  time.Time // pending 且 createdAt 不晚于此
}

// Match 判断记录是否已可回收.
func (c Cutoffs) Match(d *model.Drop) bool {
	switch d.Status {
	case model.DropExpired:
		return true
	case model.DropActive:
		return d.ExpiresAt != nil && !d.ExpiresAt.After(c.ExpiredBefore)
	case model.DropConsumed:
		return d.ConsumedAt != nil && !d.ConsumedAt.After(c.ConsumedBefore)
	case model.DropPending:
		return !d.CreatedAt.After(c.PendingBefore)
	default:
		return false
	}
}
