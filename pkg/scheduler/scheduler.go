// Package scheduler 包装 gocron/v2，按名称管理后台任务并记录每次运行的结果.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yeisme/quickdrop/pkg/log"
)

// ErrJobNotFound 名称或 ID 没有对应的任务.
var ErrJobNotFound = errors.New("scheduler: job not found")

type JobStatus string

const (
	StatusIdle    JobStatus = "idle"
	StatusRunning JobStatus = "running"
	StatusFailed  JobStatus = "failed"
)

// JobInfo 任务快照，NextRun 与 LastRun 在读取时从 gocron 获取.
type JobInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Schedule    string     `json:"schedule"`
	Status      JobStatus  `json:"status"`
	NextRun     *time.Time `json:"next_run,omitempty"`
	LastRun     *time.Time `json:"last_run,omitempty"`
	LastSuccess *time.Time `json:"last_success,omitempty"`
	Runs        int        `json:"runs"`
	Failures    int        `json:"failures"`
	Error       string     `json:"error,omitempty"`
}

type entry struct {
	job  gocron.Job
	info JobInfo
}

type Scheduler struct {
	cron   gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*entry
}

// NewScheduler 创建调度器，任务收到的 ctx 在 Stop 时取消.
func NewScheduler() (*Scheduler, error) {
	logger := log.Component("scheduler")

	cron, err := gocron.NewScheduler(gocron.WithLogger(gocronLogger{l: logger}))
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron,
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		jobs:   make(map[string]*entry),
	}, nil
}

// Every 注册固定间隔任务. 同一任务不会重叠执行，上一轮未结束时本轮顺延.
func (s *Scheduler) Every(name string, interval time.Duration, runNow bool, fn func(ctx context.Context) error) error {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.BeforeJobRuns(func(_ uuid.UUID, name string) { s.started(name) }),
			gocron.AfterJobRuns(func(_ uuid.UUID, name string) { s.finished(name, nil) }),
			gocron.AfterJobRunsWithError(func(_ uuid.UUID, name string, err error) { s.finished(name, err) }),
			gocron.AfterJobRunsWithPanic(func(_ uuid.UUID, name string, recovered any) {
				s.finished(name, fmt.Errorf("panic: %v", recovered))
			}),
		),
	}
	if runNow {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %s already registered", name)
	}

	job, err := s.cron.NewJob(gocron.DurationJob(interval), gocron.NewTask(fn, s.ctx), opts...)
	if err != nil {
		return fmt.Errorf("register job %s: %w", name, err)
	}

	s.jobs[name] = &entry{job: job, info: JobInfo{
		ID:       job.ID().String(),
		Name:     name,
		Schedule: "@every " + interval.String(),
		Status:   StatusIdle,
	}}

	s.logger.Info().Str("job", name).Dur("interval", interval).Msg("job registered")

	return nil
}

func (s *Scheduler) started(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.jobs[name]; ok {
		e.info.Status = StatusRunning
	}
}

func (s *Scheduler) finished(name string, err error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[name]
	if !ok {
		return
	}

	e.info.Runs++

	if err != nil {
		e.info.Failures++
		e.info.Status = StatusFailed
		e.info.Error = err.Error()
		s.logger.Error().Err(err).Str("job", name).Msg("job failed")

		return
	}

	e.info.Status = StatusIdle
	e.info.Error = ""
	e.info.LastSuccess = &now
}

// lookup 按名称或 gocron UUID 查找，调用方持有锁.
func (s *Scheduler) lookup(ref string) (string, *entry, bool) {
	if e, ok := s.jobs[ref]; ok {
		return ref, e, true
	}

	if id, err := uuid.Parse(ref); err == nil {
		for name, e := range s.jobs {
			if e.job.ID() == id {
				return name, e, true
			}
		}
	}

	return "", nil, false
}

// RunNow 立即触发一次，ref 可以是名称或 ID.
func (s *Scheduler) RunNow(ref string) error {
	s.mu.Lock()
	_, e, ok := s.lookup(ref)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, ref)
	}

	return e.job.RunNow()
}

// Remove 删除任务，ref 可以是名称或 ID.
func (s *Scheduler) Remove(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, e, ok := s.lookup(ref)
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, ref)
	}

	if err := s.cron.RemoveJob(e.job.ID()); err != nil {
		return err
	}

	delete(s.jobs, name)
	s.logger.Info().Str("job", name).Msg("job removed")

	return nil
}

// Jobs 返回按名称排序的任务快照.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))

	for _, e := range s.jobs {
		info := e.info
		if t, err := e.job.NextRun(); err == nil && !t.IsZero() {
			info.NextRun = &t
		}

		if t, err := e.job.LastRun(); err == nil && !t.IsZero() {
			info.LastRun = &t
		}

		out = append(out, info)
	}

	slices.SortFunc(out, func(a, b JobInfo) int { return strings.Compare(a.Name, b.Name) })

	return out
}

// Waiting 因 singleton 模式排队等待的任务数.
func (s *Scheduler) Waiting() int {
	return s.cron.JobsWaitingInQueue()
}

func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.Jobs())).Msg("scheduler started")
	s.cron.Start()
}

// Stop 取消任务 ctx 并等待正在运行的任务结束.
func (s *Scheduler) Stop() error {
	s.cancel()

	return s.cron.Shutdown()
}

// gocronLogger 把 gocron 的日志接到 zerolog.
type gocronLogger struct {
	l zerolog.Logger
}

func (g gocronLogger) Debug(msg string, args ...any) { g.l.Debug().Fields(args).Msg(msg) }
func (g gocronLogger) Info(msg string, args ...any)  { g.l.Debug().Fields(args).Msg(msg) }
func (g gocronLogger) Warn(msg string, args ...any)  { g.l.Warn().Fields(args).Msg(msg) }
func (g gocronLogger) Error(msg string, args ...any) { g.l.Error().Fields(args).Msg(msg) }
