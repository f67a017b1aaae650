package handle

import (
	"net/http"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/quickdrop/pkg/context"
	"github.com/yeisme/quickdrop/pkg/scheduler"
)

func schedulerOrAbort(c *gin.Context) *scheduler.Scheduler {
	sched := ctxPkg.GetScheduler(c.Request.Context())
	if sched == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler disabled"})
	}

	return sched
}

// SchedulerJobs 返回所有调度器任务信息.
//
//	@Summary	列出后台任务
//	@Tags		管理
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Router		/api/v1/admin/scheduler/jobs [get]
func SchedulerJobs(c *gin.Context) {
	sched := schedulerOrAbort(c)
	if sched == nil {
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": sched.Jobs(), "waiting": sched.Waiting()})
}

// SchedulerRunJob 立即触发任务，id 可以是任务名称或 gocron 的 UUID.
//
//	@Summary	立即执行后台任务
//	@Tags		管理
//	@Produce	json
//	@Param		id	path		string	true	"任务名称或 ID"
//	@Success	202		{object}	map[string]string
//	@Failure	404		{object}	map[string]string
//	@Router		/api/v1/admin/scheduler/jobs/{id}/run [post]
func SchedulerRunJob(c *gin.Context) {
	sched := schedulerOrAbort(c)
	if sched == nil {
		return
	}

	if err := sched.RunNow(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "job triggered"})
}

// SchedulerRemoveJob 删除任务，id 可以是任务名称或 gocron 的 UUID.
//
//	@Summary	删除后台任务
//	@Tags		管理
//	@Produce	json
//	@Param		id	path		string	true	"任务名称或 ID"
//	@Success	200	{object}	map[string]string
//	@Failure	404	{object}	map[string]string
//	@Router		/api/v1/admin/scheduler/jobs/{id} [delete]
func SchedulerRemoveJob(c *gin.Context) {
	sched := schedulerOrAbort(c)
	if sched == nil {
		return
	}

	if err := sched.Remove(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "job removed"})
}
