// Package jobs 把业务定时任务注册到 scheduler.
package jobs

import (
	"context"
	"errors"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	"github.com/yeisme/quickdrop/pkg/log"
	"github.com/yeisme/quickdrop/pkg/scheduler"
)

// JobDropReaper 回收过期、已消费与超时未激活 QuickDrop 的任务名.
const JobDropReaper = "quickdrop.reaper"

type Reaper interface {
	RunOnce(ctx context.Context) (types.ReapResponse, error)
}

// RegisterJobs scheduler.enabled 为 false 时什么都不做.
func RegisterJobs(sched *scheduler.Scheduler, reaper Reaper, cfg configs.SchedulerConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if sched == nil || reaper == nil {
		return errors.New("jobs: scheduler and reaper are required")
	}

	return sched.Every(JobDropReaper, cfg.ReaperInterval, cfg.RunOnStart, func(ctx context.Context) error {
		return RunReaper(ctx, reaper)
	})
}

// RunReaper 执行一轮回收. 有删除失败的记录时返回错误，由调度器记为失败.
func RunReaper(ctx context.Context, reaper Reaper) error {
	l := log.Component("jobs").With().Str("job", JobDropReaper).Logger()

	res, err := reaper.RunOnce(ctx)
	if err != nil {
		return err
	}

	switch {
	case res.Skipped:
		l.Debug().Msg("previous reaper run still in progress")
	case res.Failed > 0:
		l.Warn().Int("deleted", res.Deleted).Int("failed", res.Failed).Msg("reaper left failed deletions")

		return errPartialReap
	case res.Deleted > 0:
		l.Info().Int("deleted", res.Deleted).Int("deferred", res.Deferred).Int("batches", res.Batches).Msg("reaped quickdrops")
	}

	return nil
}

var errPartialReap = errors.New("jobs: some drops could not be deleted, they will be retried next run")
