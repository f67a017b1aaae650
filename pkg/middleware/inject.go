package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/quickdrop/pkg/context"
	"github.com/yeisme/quickdrop/pkg/internal/storage"
	"github.com/yeisme/quickdrop/pkg/scheduler"
)

// Inject 把存储与调度器挂到请求 context 上，健康检查与管理接口从中读取.
func Inject(manager *storage.Manager, sched *scheduler.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithStorageManager(c.Request.Context(), manager)
		ctx = context.WithScheduler(ctx, sched)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
