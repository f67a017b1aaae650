package drop_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yeisme/quickdrop/pkg/cache"
	"github.com/yeisme/quickdrop/pkg/internal/drop"
	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/storage/blob"
	"github.com/yeisme/quickdrop/pkg/internal/storage/kv"
	"github.com/yeisme/quickdrop/pkg/internal/types"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	engine *drop.Engine
	store  drop.Store
	blobs  *blob.MemoryStore
	clock  *fakeClock
}

func newHarness(t *testing.T, store drop.Store, opts ...drop.Option) *harness {
	t.Helper()

	h := &harness{store: store, blobs: blob.NewMemoryStore(), clock: newClock()}
	opts = append([]drop.Option{drop.WithClock(h.clock)}, opts...)
	h.engine = drop.NewEngine(store, h.blobs, opts...)

	return h
}

// ready 创建、上传并激活一个 QuickDrop.
func (h *harness) ready(t *testing.T, body string) string {
	t.Helper()

	ctx := context.Background()

	created, err := h.engine.Create(ctx, drop.CreateRequest{
		FileName:    "report.pdf",
		SizeBytes:   int64(len(body)),
		ContentType: "application/pdf",
		Principal:   "203.0.113.7",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := h.engine.Upload(ctx, created.Token, strings.NewReader(body), int64(len(body))); err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := h.engine.Activate(ctx, created.Token); err != nil {
		t.Fatalf("activate: %v", err)
	}

	return created.Token
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drop.NewMemoryStore())

	created, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "  notes.txt ", SizeBytes: 5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if want := "quickdrop/" + created.Token + "/notes.txt"; created.StoragePath != want {
		t.Errorf("storagePath = %q, want %q", created.StoragePath, want)
	}

	if len(created.Token) < 43 {
		t.Errorf("token too short: %q", created.Token)
	}

	st, err := h.engine.Status(ctx, created.Token)
	if err != nil || st.Status != "pending" || st.ExpiresAt != nil || st.RemainingMs != 0 {
		t.Fatalf("pending status = %+v, %v", st, err)
	}

	if _, err := h.engine.Upload(ctx, created.Token, strings.NewReader("hello"), 5); err != nil {
		t.Fatalf("upload: %v", err)
	}

	act, err := h.engine.Activate(ctx, created.Token)
	if err != nil {
		t.Fatalf("activate: %v", err)
	}

	if act.SharePath != "/quickdrop/"+created.Token || act.ExpiresInMs != 60000 {
		t.Errorf("activate = %+v", act)
	}

	if !act.ExpiresAt.Equal(h.clock.Now().Add(time.Minute)) {
		t.Errorf("expiresAt = %v", act.ExpiresAt)
	}

	h.clock.Advance(10 * time.Second)

	st, err = h.engine.Status(ctx, created.Token)
	if err != nil || st.Status != "active" || st.RemainingMs != 50000 {
		t.Fatalf("active status = %+v, %v", st, err)
	}

	dl, err := h.engine.Consume(ctx, created.Token)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	if dl.ContentType != "application/octet-stream" || dl.FileName != "notes.txt" || dl.Size != 5 {
		t.Errorf("download = %+v", dl)
	}

	body, _ := io.ReadAll(dl)
	if err := dl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if string(body) != "hello" {
		t.Errorf("body = %q", body)
	}

	if h.blobs.Len() != 0 {
		t.Errorf("payload not deleted, %d objects left", h.blobs.Len())
	}

	if _, err := h.store.Get(ctx, created.Token); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("record still present: %v", err)
	}

	if _, err := h.engine.Status(ctx, created.Token); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("status after consume = %v, want NotFound", err)
	}

	if _, err := h.engine.Consume(ctx, created.Token); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("second consume = %v, want NotFound", err)
	}
}

func TestTombstoneServesConsumedView(t *testing.T) {
	ctx := context.Background()

	ts := cache.NewTombstones(cache.NewCache(kv.NewMemoryKV()), 5*time.Minute)
	h := newHarness(t, drop.NewMemoryStore(), drop.WithTombstones(ts))
	token := h.ready(t, "abc")

	dl, err := h.engine.Consume(ctx, token)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	_, _ = io.Copy(io.Discard, dl)
	_ = dl.Close()

	st, err := h.engine.Status(ctx, token)
	if err != nil {
		t.Fatalf("status: %v", err)
	}

	if st.Status != "consumed" || st.FileName != "report.pdf" || st.RemainingMs != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestConcurrentConsumeSingleWinner(t *testing.T) {
	stores := map[string]func(t *testing.T) drop.Store{
		"memory": func(t *testing.T) drop.Store { return drop.NewMemoryStore() },
		"gorm":   newGormStore,
	}

	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, mk(t))
			token := h.ready(t, "payload")

			const n = 16

			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				winners int
				bodies  []string
			)

			for range n {
				wg.Add(1)

				go func() {
					defer wg.Done()

					dl, err := h.engine.Consume(context.Background(), token)
					if err != nil {
						if !errors.Is(err, types.ErrStateConflict) && !errors.Is(err, types.ErrNotFound) {
							t.Errorf("loser error = %v", err)
						}

						return
					}

					b, _ := io.ReadAll(dl)
					_ = dl.Close()

					mu.Lock()
					winners++
					bodies = append(bodies, string(b))
					mu.Unlock()
				}()
			}

			wg.Wait()

			if winners != 1 {
				t.Fatalf("winners = %d, want 1", winners)
			}

			if bodies[0] != "payload" {
				t.Errorf("body = %q", bodies[0])
			}
		})
	}
}

func TestActivateRules(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drop.NewMemoryStore())

	created, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "a.bin", SizeBytes: 3})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.engine.Activate(ctx, created.Token); !errors.Is(err, types.ErrStateConflict) {
		t.Fatalf("activate without payload = %v, want StateConflict", err)
	}

	if _, err := h.engine.Upload(ctx, created.Token, strings.NewReader("abc"), 3); err != nil {
		t.Fatal(err)
	}

	first, err := h.engine.Activate(ctx, created.Token)
	if err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(30 * time.Second)

	if _, err := h.engine.Activate(ctx, created.Token); !errors.Is(err, types.ErrStateConflict) {
		t.Fatalf("double activate = %v, want StateConflict", err)
	}

	d, err := h.store.Get(ctx, created.Token)
	if err != nil {
		t.Fatal(err)
	}

	if !d.ExpiresAt.Equal(first.ExpiresAt) {
		t.Errorf("expiresAt moved from %v to %v", first.ExpiresAt, d.ExpiresAt)
	}

	if _, err := h.engine.Upload(ctx, created.Token, strings.NewReader("abc"), 3); !errors.Is(err, types.ErrStateConflict) {
		t.Errorf("upload after activation = %v, want StateConflict", err)
	}

	if _, err := h.engine.Activate(ctx, "not-a-real-token-at-all"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("unknown token = %v, want NotFound", err)
	}
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	cfg := drop.DefaultConfig()
	cfg.LazyGC = false

	h := newHarness(t, drop.NewMemoryStore(), drop.WithConfig(cfg))
	token := h.ready(t, "x")

	h.clock.Advance(time.Minute)

	st, err := h.engine.Status(ctx, token)
	if err != nil {
		t.Fatal(err)
	}

	if st.Status != "expired" || st.RemainingMs != 0 {
		t.Errorf("status at expiry = %+v", st)
	}

	if _, err := h.engine.Consume(ctx, token); !errors.Is(err, types.ErrExpired) {
		t.Fatalf("consume expired = %v, want ErrExpired", err)
	}

	d, err := h.store.Get(ctx, token)
	if err != nil {
		t.Fatal(err)
	}

	if d.Status != "expired" {
		t.Errorf("stored status = %s, want expired", d.Status)
	}

	if _, err := h.engine.Consume(ctx, token); !errors.Is(err, types.ErrStateConflict) {
		t.Errorf("consume after marking = %v, want StateConflict", err)
	}
}

func TestLazyGCOnExpiredStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drop.NewMemoryStore())
	token := h.ready(t, "x")

	h.clock.Advance(2 * time.Minute)

	st, err := h.engine.Status(ctx, token)
	if err != nil || st.Status != "expired" {
		t.Fatalf("status = %+v, %v", st, err)
	}

	if h.blobs.Len() != 0 {
		t.Error("expired payload not collected")
	}

	if _, err := h.engine.Status(ctx, token); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("second status = %v, want NotFound", err)
	}
}

func TestConsumeMissingPayload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drop.NewMemoryStore())
	token := h.ready(t, "x")

	d, err := h.store.Get(ctx, token)
	if err != nil {
		t.Fatal(err)
	}

	_ = h.blobs.Delete(ctx, d.StoragePath)

	if _, err := h.engine.Consume(ctx, token); !errors.Is(err, types.ErrGone) {
		t.Fatalf("consume = %v, want ErrGone", err)
	}

	if _, err := h.store.Get(ctx, token); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("record kept after missing payload: %v", err)
	}
}

func TestCloseWithoutReadingStillDeletes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := newHarness(t, drop.NewMemoryStore())
	token := h.ready(t, "interrupted")

	dl, err := h.engine.Consume(ctx, token)
	if err != nil {
		t.Fatal(err)
	}

	// 客户端断开
	cancel()

	buf := make([]byte, 3)
	_, _ = dl.Read(buf)
	_ = dl.Close()
	_ = dl.Close()

	if h.blobs.Len() != 0 {
		t.Error("payload survived an interrupted stream")
	}

	if _, err := h.store.Get(context.Background(), token); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("record survived an interrupted stream: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t, drop.NewMemoryStore())

	tests := []struct {
		name string
		req  drop.CreateRequest
	}{
		{"empty name", drop.CreateRequest{FileName: "   ", SizeBytes: 1}},
		{"long name", drop.CreateRequest{FileName: strings.Repeat("a", 256), SizeBytes: 1}},
		{"zero size", drop.CreateRequest{FileName: "a", SizeBytes: 0}},
		{"negative size", drop.CreateRequest{FileName: "a", SizeBytes: -5}},
		{"too large", drop.CreateRequest{FileName: "a", SizeBytes: 26214401}},
		{"long content type", drop.CreateRequest{FileName: "a", SizeBytes: 1, ContentType: strings.Repeat("x", 256)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.engine.Create(context.Background(), tt.req); !errors.Is(err, types.ErrInvalidInput) {
				t.Errorf("err = %v, want ErrInvalidInput", err)
			}
		})
	}

	if _, err := h.engine.Create(context.Background(), drop.CreateRequest{FileName: "a", SizeBytes: 26214400}); err != nil {
		t.Errorf("max size rejected: %v", err)
	}
}

type countingLimiter struct {
	mu    sync.Mutex
	calls int
	max   int
}

func (l *countingLimiter) Allow(ctx context.Context, principal string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls++
	if l.calls > l.max {
		return fmt.Errorf("principal %s: %w", principal, types.ErrRateLimited)
	}

	return nil
}

func TestCreateRateLimitedBeforeValidation(t *testing.T) {
	h := newHarness(t, drop.NewMemoryStore(), drop.WithLimiter(&countingLimiter{max: 5}))
	ctx := context.Background()

	for i := range 5 {
		if _, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "a", SizeBytes: 1}); err != nil {
			t.Fatalf("create %d: %v", i+1, err)
		}
	}

	if _, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "a", SizeBytes: 1}); !errors.Is(err, types.ErrRateLimited) {
		t.Fatalf("6th create = %v, want ErrRateLimited", err)
	}

	if _, err := h.engine.Create(ctx, drop.CreateRequest{}); !errors.Is(err, types.ErrRateLimited) {
		t.Errorf("invalid request while limited = %v, want ErrRateLimited", err)
	}
}

type fixedTokens string

func (f fixedTokens) NewToken() (string, error) { return string(f), nil }

func TestAllocationExhausted(t *testing.T) {
	h := newHarness(t, drop.NewMemoryStore(), drop.WithTokens(fixedTokens("AAAAAAAAAAAAAAAAAAAAAAAA")))
	ctx := context.Background()

	if _, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "a", SizeBytes: 1}); err != nil {
		t.Fatal(err)
	}

	if _, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "a", SizeBytes: 1}); !errors.Is(err, types.ErrAllocationExhausted) {
		t.Errorf("err = %v, want ErrAllocationExhausted", err)
	}
}

func TestUploadLimits(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drop.NewMemoryStore())

	created, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "a", SizeBytes: 4})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := h.engine.Upload(ctx, created.Token, strings.NewReader("12345"), 5); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("declared oversize = %v, want ErrInvalidInput", err)
	}

	if _, err := h.engine.Upload(ctx, created.Token, strings.NewReader("12345"), -1); !errors.Is(err, types.ErrInvalidInput) {
		t.Errorf("streamed oversize = %v, want ErrInvalidInput", err)
	}

	if h.blobs.Len() != 0 {
		t.Error("oversized payload kept")
	}

	res, err := h.engine.Upload(ctx, created.Token, strings.NewReader("1234"), -1)
	if err != nil || res.SizeBytes != 4 {
		t.Fatalf("upload = %+v, %v", res, err)
	}
}

func TestConsumeKeepsExpiresAt(t *testing.T) {
	ctx := context.Background()
	cfg := drop.DefaultConfig()
	cfg.LazyGC = false

	h := newHarness(t, drop.NewMemoryStore(), drop.WithConfig(cfg))

	token := h.ready(t, "keep")

	before, err := h.store.Get(ctx, token)
	if err != nil {
		t.Fatal(err)
	}

	h.clock.Advance(20 * time.Second)

	dl, err := h.engine.Consume(ctx, token)
	if err != nil {
		t.Fatal(err)
	}

	after, err := h.store.Get(ctx, token)
	if err != nil {
		t.Fatal(err)
	}

	if after.Status != "consumed" || !after.ExpiresAt.Equal(*before.ExpiresAt) {
		t.Errorf("after consume: status %s, expiresAt %v, want %v", after.Status, after.ExpiresAt, before.ExpiresAt)
	}

	if after.ConsumedAt == nil || !after.ConsumedAt.Equal(h.clock.Now()) {
		t.Errorf("consumedAt = %v", after.ConsumedAt)
	}

	_ = dl.Close()

	late := h.ready(t, "late")

	h.clock.Advance(90 * time.Second)

	if _, err := h.engine.Consume(ctx, late); !errors.Is(err, types.ErrExpired) {
		t.Fatalf("consume expired = %v", err)
	}

	d, err := h.store.Get(ctx, late)
	if err != nil {
		t.Fatal(err)
	}

	if want := h.clock.Now().Add(-30 * time.Second); d.Status != "expired" || !d.ExpiresAt.Equal(want) {
		t.Errorf("after expired consume: status %s, expiresAt %v, want %v", d.Status, d.ExpiresAt, want)
	}
}

func TestUploadRejectsExistingPayload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drop.NewMemoryStore())

	created, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "a.bin", SizeBytes: 3})
	if err != nil {
		t.Fatal(err)
	}

	// 预签名直传已写入
	if err := h.blobs.Put(ctx, created.StoragePath, strings.NewReader("abc"), 3, ""); err != nil {
		t.Fatal(err)
	}

	if _, err := h.engine.Upload(ctx, created.Token, strings.NewReader("xyz"), 3); !errors.Is(err, types.ErrStateConflict) {
		t.Fatalf("second payload = %v, want StateConflict", err)
	}

	rc, _, err := h.blobs.Open(ctx, created.StoragePath)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()

	if body, _ := io.ReadAll(rc); string(body) != "abc" {
		t.Errorf("payload overwritten: %q", body)
	}
}

// hookReader 在第一次 Read 时执行 fn.
type hookReader struct {
	r    io.Reader
	once sync.Once
	fn   func()
}

func (h *hookReader) Read(p []byte) (int, error) {
	h.once.Do(h.fn)

	return h.r.Read(p)
}

func TestActivateDuringUpload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drop.NewMemoryStore())

	created, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "a.bin", SizeBytes: 3})
	if err != nil {
		t.Fatal(err)
	}

	var activateErr error

	body := &hookReader{r: strings.NewReader("abc"), fn: func() {
		_, activateErr = h.engine.Activate(ctx, created.Token)
	}}

	if _, err := h.engine.Upload(ctx, created.Token, body, 3); err != nil {
		t.Fatal(err)
	}

	if !errors.Is(activateErr, types.ErrStateConflict) {
		t.Errorf("activate during upload = %v, want StateConflict", activateErr)
	}

	if _, err := h.engine.Activate(ctx, created.Token); err != nil {
		t.Errorf("activate after upload = %v", err)
	}
}

func TestUploadReportsConcurrentActivation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, drop.NewMemoryStore())

	created, err := h.engine.Create(ctx, drop.CreateRequest{FileName: "a.bin", SizeBytes: 3})
	if err != nil {
		t.Fatal(err)
	}

	// 另一个进程在写入期间完成了激活
	body := &hookReader{r: strings.NewReader("abc"), fn: func() {
		_, _ = h.store.Update(ctx, created.Token, func(d *model.Drop) (bool, error) {
			exp := h.clock.Now().Add(time.Minute)
			d.Status = model.DropActive
			d.ExpiresAt = &exp

			return true, nil
		})
	}}

	if _, err := h.engine.Upload(ctx, created.Token, body, 3); !errors.Is(err, types.ErrStateConflict) {
		t.Errorf("upload racing activation = %v, want StateConflict", err)
	}
}
