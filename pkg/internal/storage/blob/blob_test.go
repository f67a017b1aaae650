package blob_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/storage/blob"
	"github.com/yeisme/quickdrop/pkg/internal/types"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := blob.NewMemoryStore()

	if err := s.Put(ctx, "quickdrop/a/file.txt", strings.NewReader("hello"), 5, "text/plain"); err != nil {
		t.Fatalf("put: %v", err)
	}

	rc, meta, err := s.Open(ctx, "quickdrop/a/file.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()

	body, _ := io.ReadAll(rc)
	if string(body) != "hello" {
		t.Errorf("body = %q", body)
	}

	if meta.ContentType != "text/plain" || meta.Size != 5 {
		t.Errorf("meta = %+v", meta)
	}

	if err := s.Delete(ctx, "quickdrop/a/file.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.Stat(ctx, "quickdrop/a/file.txt"); !errors.Is(err, blob.ErrNotFound) {
		t.Errorf("stat after delete = %v, want ErrNotFound", err)
	}

	// 重复删除不报错
	if err := s.Delete(ctx, "quickdrop/a/file.txt"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestMemoryStoreShortBody(t *testing.T) {
	s := blob.NewMemoryStore()

	err := s.Put(context.Background(), "x", strings.NewReader("abc"), 10, "")
	if err == nil {
		t.Fatal("expected short body error")
	}

	if s.Len() != 0 {
		t.Errorf("len = %d, want 0", s.Len())
	}
}

type failingStore struct {
	blob.Store
	calls int
}

func (f *failingStore) Stat(ctx context.Context, path string) (blob.Meta, error) {
	f.calls++

	return blob.Meta{}, errors.New("connection refused")
}

func TestBreakerOpensOnFailures(t *testing.T) {
	cfg := configs.Defaults().CircuitBreaker
	cfg.Enabled = true
	cfg.MinRequests = 3
	cfg.FailureRate = 0.5
	cfg.OpenTimeout = time.Minute

	inner := &failingStore{Store: blob.NewMemoryStore()}
	s := blob.WithBreaker(inner, cfg)

	for range 3 {
		_, _ = s.Stat(context.Background(), "k")
	}

	_, err := s.Stat(context.Background(), "k")
	if !errors.Is(err, types.ErrStorageUnavailable) {
		t.Fatalf("err = %v, want ErrStorageUnavailable", err)
	}

	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3", inner.calls)
	}
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	cfg := configs.Defaults().CircuitBreaker
	cfg.Enabled = true
	cfg.MinRequests = 2

	s := blob.WithBreaker(blob.NewMemoryStore(), cfg)

	for range 5 {
		if _, err := s.Stat(context.Background(), "missing"); !errors.Is(err, blob.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}
}
