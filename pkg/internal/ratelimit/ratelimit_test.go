package ratelimit_test

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/ratelimit"
	"github.com/yeisme/quickdrop/pkg/internal/types"
)

func limiterConfig() configs.LimiterConfig {
	return configs.LimiterConfig{
		Enabled:  true,
		Backend:  "memory",
		Window:   time.Minute,
		Max:      5,
		FailOpen: true,
	}
}

func newGormStore(t *testing.T) ratelimit.CounterStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "rl.db") + "?_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatal(err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := model.AutoMigrate(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	return ratelimit.NewGormStore(db)
}

func TestFixedWindow(t *testing.T) {
	stores := map[string]func(t *testing.T) ratelimit.CounterStore{
		"memory": func(*testing.T) ratelimit.CounterStore { return ratelimit.NewMemoryStore() },
		"gorm":   newGormStore,
	}

	for name, mk := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
			l := ratelimit.New(mk(t), limiterConfig(), ratelimit.WithNow(func() time.Time { return now }))

			for i := range 5 {
				if err := l.Allow(ctx, "198.51.100.1"); err != nil {
					t.Fatalf("request %d: %v", i+1, err)
				}
			}

			if err := l.Allow(ctx, "198.51.100.1"); !errors.Is(err, types.ErrRateLimited) {
				t.Fatalf("6th request = %v, want ErrRateLimited", err)
			}

			// 其他主体不受影响
			if err := l.Allow(ctx, "198.51.100.2"); err != nil {
				t.Errorf("other principal: %v", err)
			}

			// 规范化后相同的主体共享计数
			if err := l.Allow(ctx, "  198.51.100.1 "); !errors.Is(err, types.ErrRateLimited) {
				t.Errorf("normalised principal = %v, want ErrRateLimited", err)
			}

			now = now.Add(time.Minute)

			if err := l.Allow(ctx, "198.51.100.1"); err != nil {
				t.Errorf("after window reset: %v", err)
			}
		})
	}
}

func TestConcurrentHitsNeverExceedLimit(t *testing.T) {
	l := ratelimit.New(ratelimit.NewMemoryStore(), limiterConfig())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)

	for range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if l.Allow(context.Background(), "same") == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	if allowed != 5 {
		t.Errorf("allowed = %d, want 5", allowed)
	}
}

type brokenStore struct{}

func (brokenStore) Hit(context.Context, string, time.Time, time.Duration, int) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("connection refused")
}

func TestFailurePolicy(t *testing.T) {
	cfg := limiterConfig()

	if err := ratelimit.New(brokenStore{}, cfg).Allow(context.Background(), "p"); err != nil {
		t.Errorf("fail open = %v, want nil", err)
	}

	cfg.FailOpen = false
	if err := ratelimit.New(brokenStore{}, cfg).Allow(context.Background(), "p"); !errors.Is(err, types.ErrRateLimited) {
		t.Errorf("fail closed = %v, want ErrRateLimited", err)
	}

	cfg.Enabled = false
	if err := ratelimit.New(brokenStore{}, cfg).Allow(context.Background(), "p"); err != nil {
		t.Errorf("disabled = %v, want nil", err)
	}
}

func TestKey(t *testing.T) {
	if ratelimit.Key(" ABC ") != ratelimit.Key("abc") {
		t.Error("key is not normalised")
	}

	if ratelimit.Key("") != ratelimit.Key("unknown") {
		t.Error("empty principal should map to unknown")
	}

	if got := ratelimit.Key("abc"); len(got) != 64 {
		t.Errorf("key length = %d, want 64", len(got))
	}
}

func TestPrincipal(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare first", map[string]string{"cf-connecting-ip": "1.1.1.1", "x-real-ip": "2.2.2.2"}, "1.1.1.1"},
		{"real ip", map[string]string{"x-real-ip": " 2.2.2.2 ", "x-forwarded-for": "3.3.3.3"}, "2.2.2.2"},
		{"forwarded first hop", map[string]string{"x-forwarded-for": "3.3.3.3, 4.4.4.4"}, "3.3.3.3"},
		{"blank falls through", map[string]string{"cf-connecting-ip": "  ", "x-forwarded-for": "5.5.5.5"}, "5.5.5.5"},
		{"none", nil, "unknown"},
		{"truncated", map[string]string{"x-real-ip": strings.Repeat("a", 200)}, strings.Repeat("a", 128)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}

			if got := ratelimit.Principal(h); got != tt.want {
				t.Errorf("Principal = %q, want %q", got, tt.want)
			}
		})
	}
}
