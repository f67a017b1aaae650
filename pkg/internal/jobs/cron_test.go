package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/jobs"
	"github.com/yeisme/quickdrop/pkg/internal/types"
	"github.com/yeisme/quickdrop/pkg/scheduler"
)

type stubReaper struct {
	runs atomic.Int32
	res  types.ReapResponse
	err  error
}

func (r *stubReaper) RunOnce(context.Context) (types.ReapResponse, error) {
	r.runs.Add(1)

	return r.res, r.err
}

func TestRegisterJobsRunsReaper(t *testing.T) {
	sched, err := scheduler.NewScheduler()
	if err != nil {
		t.Fatal(err)
	}

	r := &stubReaper{}
	cfg := configs.SchedulerConfig{Enabled: true, ReaperInterval: time.Hour, RunOnStart: true}

	if err := jobs.RegisterJobs(sched, r, cfg); err != nil {
		t.Fatalf("register: %v", err)
	}

	sched.Start()
	defer func() { _ = sched.Stop() }()

	deadline := time.Now().Add(5 * time.Second)
	for r.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if r.runs.Load() == 0 {
		t.Fatal("reaper did not run on start")
	}
}

func TestRegisterJobsDisabled(t *testing.T) {
	if err := jobs.RegisterJobs(nil, nil, configs.SchedulerConfig{}); err != nil {
		t.Fatalf("disabled scheduler should be a no-op: %v", err)
	}

	cfg := configs.SchedulerConfig{Enabled: true, ReaperInterval: time.Minute}
	if err := jobs.RegisterJobs(nil, &stubReaper{}, cfg); err == nil {
		t.Fatal("nil scheduler accepted")
	}
}

func TestRunReaperResult(t *testing.T) {
	cases := []struct {
		name    string
		reaper  *stubReaper
		wantErr bool
	}{
		{"deleted", &stubReaper{res: types.ReapResponse{Deleted: 3, Batches: 1}}, false},
		{"skipped", &stubReaper{res: types.ReapResponse{Skipped: true}}, false},
		{"partial", &stubReaper{res: types.ReapResponse{Deleted: 1, Failed: 2}}, true},
		{"store error", &stubReaper{err: errors.New("db down")}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := jobs.RunReaper(context.Background(), tc.reaper)
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
