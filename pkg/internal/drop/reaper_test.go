package drop_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yeisme/quickdrop/pkg/internal/drop"
	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/types"
)

func TestReaperCollectsExpiredAndStale(t *testing.T) {
	ctx := context.Background()
	cfg := drop.DefaultConfig()
	cfg.LazyGC = false

	h := newHarness(t, drop.NewMemoryStore(), drop.WithConfig(cfg))
	r := drop.NewReaper(h.engine)

	expired := h.ready(t, "old")

	stale, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "never.bin", SizeBytes: 3})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.engine.Upload(ctx, stale.Token, strings.NewReader("abc"), 3); err != nil {
		t.Fatal(err)
	}

	// 到期但尚在宽限期内
	h.clock.Advance(time.Minute + 5*time.Second)

	res, err := r.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if res.Deleted != 0 {
		t.Fatalf("deleted within grace: %+v", res)
	}

	h.clock.Advance(10 * time.Minute)

	res, err = r.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if res.Deleted != 2 || res.Failed != 0 || res.Batches != 1 {
		t.Errorf("result = %+v", res)
	}

	if h.blobs.Len() != 0 {
		t.Errorf("%d payloads left", h.blobs.Len())
	}

	for _, token := range []string{expired, stale.Token} {
		if _, err := h.engine.Status(ctx, token); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("status %s = %v, want NotFound", token, err)
		}
	}
}

func TestReaperContinuesFullBatches(t *testing.T) {
	ctx := context.Background()
	cfg := drop.DefaultConfig()
	cfg.ReaperBatch = 2

	h := newHarness(t, drop.NewMemoryStore(), drop.WithConfig(cfg))

	for range 5 {
		if _, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "p", SizeBytes: 1}); err != nil {
			t.Fatal(err)
		}
	}

	h.clock.Advance(11 * time.Minute)

	res, err := drop.NewReaper(h.engine).RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if res.Deleted != 5 || res.Batches != 3 {
		t.Errorf("result = %+v, want 5 deleted in 3 batches", res)
	}
}

func TestReaperSkipsOverlappingRuns(t *testing.T) {
	h := newHarness(t, drop.NewMemoryStore())
	r := drop.NewReaper(h.engine)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		skipped int
	)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			res, err := r.RunOnce(context.Background())
			if err != nil {
				t.Errorf("run: %v", err)
			}

			if res.Skipped {
				mu.Lock()
				skipped++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if skipped > 7 {
		t.Errorf("every run skipped")
	}
}

func TestReaperWaitsForOpenDownload(t *testing.T) {
	ctx := context.Background()
	cfg := drop.DefaultConfig()
	cfg.LazyGC = false

	h := newHarness(t, drop.NewMemoryStore(), drop.WithConfig(cfg))
	r := drop.NewReaper(h.engine)
	token := h.ready(t, "slow stream")

	dl, err := h.engine.Consume(ctx, token)
	if err != nil {
		t.Fatal(err)
	}

	for _, step := range []time.Duration{16 * time.Second, cfg.ConsumedGrace} {
		h.clock.Advance(step)

		res, err := r.RunOnce(ctx)
		if err != nil {
			t.Fatal(err)
		}

		if res.Deleted != 0 || h.blobs.Len() != 1 {
			t.Fatalf("after %v: %+v, %d payloads", step, res, h.blobs.Len())
		}
	}

	buf := make([]byte, 4)
	if n, err := dl.Read(buf); err != nil || string(buf[:n]) != "slow" {
		t.Errorf("read = %q, %v", buf[:n], err)
	}

	_ = dl.Close()

	if h.blobs.Len() != 0 {
		t.Error("payload kept after close")
	}
}

func TestReaperCollectsAbandonedConsumed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drop.NewMemoryStore())
	r := drop.NewReaper(h.engine)

	// 传输中途进程退出留下的记录
	now := h.clock.Now()
	exp := now.Add(time.Minute)
	d := &model.Drop{
		Token:       "abandoned-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		StoragePath: "quickdrop/abandoned/f.bin",
		Status:      model.DropConsumed,
		CreatedAt:   now.Add(-time.Minute),
		ExpiresAt:   &exp,
		ConsumedAt:  &now,
	}

	if err := h.store.Insert(ctx, d); err != nil {
		t.Fatal(err)
	}

	if err := h.blobs.Put(ctx, d.StoragePath, strings.NewReader("x"), 1, ""); err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(2 * time.Minute)

	if res, err := r.RunOnce(ctx); err != nil || res.Deleted != 0 {
		t.Fatalf("within consumed grace: %+v, %v", res, err)
	}

	h.clock.Advance(drop.DefaultConfig().ConsumedGrace)

	if res, err := r.RunOnce(ctx); err != nil || res.Deleted != 1 {
		t.Fatalf("after consumed grace: %+v, %v", res, err)
	}

	if h.blobs.Len() != 0 {
		t.Error("payload kept")
	}
}

// activatingStore 在列出记录后模拟另一个实例抢先激活.
type activatingStore struct {
	drop.Store
	now func() time.Time
}

func (s *activatingStore) ListReclaimable(ctx context.Context, c drop.Cutoffs, limit int) ([]model.Drop, error) {
	items, err := s.Store.ListReclaimable(ctx, c, limit)

	for _, d := range items {
		_, _ = s.Store.Update(ctx, d.Token, func(d *model.Drop) (bool, error) {
			if d.Status != model.DropPending {
				return false, nil
			}

			exp := s.now().Add(time.Minute)
			d.Status = model.DropActive
			d.ExpiresAt = &exp

			return true, nil
		})
	}

	return items, err
}

func TestReaperDefersPendingActivatedConcurrently(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	store := &activatingStore{Store: drop.NewMemoryStore(), now: clock.Now}

	h := newHarness(t, store, drop.WithClock(clock))

	created, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "late.bin", SizeBytes: 3})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.engine.Upload(ctx, created.Token, strings.NewReader("abc"), 3); err != nil {
		t.Fatal(err)
	}

	clock.Advance(11 * time.Minute)

	res, err := drop.NewReaper(h.engine).RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if res.Deleted != 0 || res.Deferred != 1 {
		t.Errorf("result = %+v, want 1 deferred", res)
	}

	d, err := store.Get(ctx, created.Token)
	if err != nil || d.Status != model.DropActive {
		t.Fatalf("record = %+v, %v", d, err)
	}

	if h.blobs.Len() != 1 {
		t.Error("payload of an activated drop deleted")
	}
}
