package catalog_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/quickdrop/pkg/internal/catalog"
	"github.com/yeisme/quickdrop/pkg/internal/model"
	"github.com/yeisme/quickdrop/pkg/internal/storage/blob"
	"github.com/yeisme/quickdrop/pkg/internal/types"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// presignMemory 给内存存储补上预签名能力.
type presignMemory struct {
	*blob.MemoryStore
}

func (presignMemory) PresignPut(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://s3.test/put/" + path, nil
}

func (presignMemory) PresignGet(_ context.Context, path, _ string, _ time.Duration) (string, error) {
	return "https://s3.test/get/" + path, nil
}

func newGormStore(t *testing.T) catalog.Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "files.db") + "?_pragma=busy_timeout(5000)"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}

	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := model.AutoMigrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return catalog.NewGormStore(db)
}

type harness struct {
	svc   *catalog.Service
	blobs presignMemory
	clock *clock
}

func newHarness(t *testing.T, store catalog.Store) *harness {
	t.Helper()

	cfg := catalog.DefaultConfig()
	cfg.PasswordIters = 1000

	h := &harness{
		blobs: presignMemory{blob.NewMemoryStore()},
		clock: &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.svc = catalog.NewService(store, h.blobs, catalog.WithConfig(cfg), catalog.WithNow(h.clock.Now))

	return h
}

func (h *harness) add(t *testing.T, body, password string, autoDelete bool) *types.FileInfo {
	t.Helper()

	info, err := h.svc.AddFile(context.Background(), catalog.AddFileInput{
		FileName:            "report final.pdf",
		ContentType:         "application/pdf",
		Password:            password,
		DeleteAfterDownload: autoDelete,
		Body:                strings.NewReader(body),
		Size:                int64(len(body)),
	})
	if err != nil {
		t.Fatalf("add file: %v", err)
	}

	return info
}

func stores() map[string]func(t *testing.T) catalog.Store {
	return map[string]func(t *testing.T) catalog.Store{
		"memory": func(t *testing.T) catalog.Store { return catalog.NewMemoryStore() },
		"gorm":   newGormStore,
	}
}

func TestAutoDeleteRoundTrip(t *testing.T) {
	for name, mk := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, mk(t))
			info := h.add(t, "pdf-bytes", "", true)

			first, err := h.svc.IssueAutoDeleteToken(ctx, info.ID)
			if err != nil {
				t.Fatalf("issue: %v", err)
			}

			if !strings.HasPrefix(first.Token, info.ID+".") {
				t.Errorf("token %q not prefixed with file id", first.Token)
			}

			if first.DownloadURL != "/api/v1/download/consume/"+first.Token {
				t.Errorf("download url = %q", first.DownloadURL)
			}

			h.clock.Advance(time.Minute)

			again, err := h.svc.IssueAutoDeleteToken(ctx, info.ID)
			if err != nil {
				t.Fatalf("reissue: %v", err)
			}

			if again.Token != first.Token {
				t.Errorf("unexpired token not reused: %q != %q", again.Token, first.Token)
			}

			dl, err := h.svc.ConsumeAutoDeleteToken(ctx, first.Token)
			if err != nil {
				t.Fatalf("consume: %v", err)
			}

			got, err := io.ReadAll(dl)
			if err != nil {
				t.Fatal(err)
			}

			if err := dl.Close(); err != nil {
				t.Fatal(err)
			}

			if string(got) != "pdf-bytes" || dl.FileName != "report final.pdf" {
				t.Errorf("download = %q %q", got, dl.FileName)
			}

			if h.blobs.Len() != 0 {
				t.Errorf("object not deleted, %d left", h.blobs.Len())
			}

			if _, err := h.svc.ConsumeAutoDeleteToken(ctx, first.Token); !errors.Is(err, types.ErrNotFound) {
				t.Errorf("second consume = %v, want not found", err)
			}

			files, err := h.svc.ListFiles(ctx, 10)
			if err != nil {
				t.Fatal(err)
			}

			if len(files) != 1 || files[0].DeletedAt == nil {
				t.Fatalf("file not marked deleted: %+v", files)
			}

			if _, err := h.svc.IssueAutoDeleteToken(ctx, info.ID); !errors.Is(err, types.ErrGone) {
				t.Errorf("issue after consume = %v, want gone", err)
			}
		})
	}
}

func TestAutoDeleteRejections(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, catalog.NewMemoryStore())
	info := h.add(t, "x", "", true)

	tok, err := h.svc.IssueAutoDeleteToken(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}

	cases := []string{
		"",
		"no-separator",
		info.ID + ".",
		"." + strings.SplitN(tok.Token, ".", 2)[1],
		info.ID + ".wrong-secret",
		"01UNKNOWNFILEID000000000000.secret",
	}

	for _, raw := range cases {
		if _, err := h.svc.ConsumeAutoDeleteToken(ctx, raw); !errors.Is(err, types.ErrNotFound) {
			t.Errorf("consume %q = %v, want not found", raw, err)
		}
	}

	h.clock.Advance(catalog.DefaultConfig().AutoDeleteTTL + time.Second)

	if _, err := h.svc.ConsumeAutoDeleteToken(ctx, tok.Token); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expired token = %v, want not found", err)
	}

	// 过期后重新签发新的 secret
	fresh, err := h.svc.IssueAutoDeleteToken(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}

	if fresh.Token == tok.Token {
		t.Error("expired token reused")
	}

	plain := h.add(t, "y", "", false)
	if _, err := h.svc.IssueAutoDeleteToken(ctx, plain.ID); !errors.Is(err, types.ErrStateConflict) {
		t.Errorf("issue on plain file = %v, want conflict", err)
	}
}

func TestConsumeKeepsTokenWhenObjectMissing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, catalog.NewMemoryStore())
	info := h.add(t, "x", "", true)

	tok, err := h.svc.IssueAutoDeleteToken(ctx, info.ID)
	if err != nil {
		t.Fatal(err)
	}

	if err := h.blobs.Delete(ctx, catalog.StoragePath(info.ID, info.FileName)); err != nil {
		t.Fatal(err)
	}

	if _, err := h.svc.ConsumeAutoDeleteToken(ctx, tok.Token); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("consume = %v, want not found", err)
	}

	files, err := h.svc.ListFiles(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}

	if files[0].DeletedAt != nil {
		t.Error("record deleted although object was missing")
	}
}

func TestConcurrentAutoDeleteConsume(t *testing.T) {
	for name, mk := range stores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h := newHarness(t, mk(t))
			info := h.add(t, "only-once", "", true)

			tok, err := h.svc.IssueAutoDeleteToken(ctx, info.ID)
			if err != nil {
				t.Fatal(err)
			}

			const workers = 8

			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				wins int
			)

			for range workers {
				wg.Add(1)

				go func() {
					defer wg.Done()

					dl, err := h.svc.ConsumeAutoDeleteToken(ctx, tok.Token)
					if err != nil {
						if !errors.Is(err, types.ErrNotFound) {
							t.Errorf("unexpected error: %v", err)
						}

						return
					}

					_, _ = io.Copy(io.Discard, dl)
					_ = dl.Close()

					mu.Lock()
					wins++
					mu.Unlock()
				}()
			}

			wg.Wait()

			if wins != 1 {
				t.Fatalf("winners = %d, want 1", wins)
			}
		})
	}
}

func TestAuthorizeDownload(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, catalog.NewMemoryStore())

	locked := h.add(t, "secret", "  hunter2 ", false)
	if locked.Visibility != string(model.VisibilityPassword) {
		t.Fatalf("visibility = %s", locked.Visibility)
	}

	if _, err := h.svc.AuthorizeDownload(ctx, locked.ID, ""); !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("missing password = %v", err)
	}

	if _, err := h.svc.AuthorizeDownload(ctx, locked.ID, "wrong"); !errors.Is(err, types.ErrUnauthorized) {
		t.Errorf("wrong password = %v", err)
	}

	resp, err := h.svc.AuthorizeDownload(ctx, locked.ID, "hunter2")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}

	if !strings.HasPrefix(resp.DownloadURL, "https://s3.test/get/files/"+locked.ID+"/") {
		t.Errorf("download url = %q", resp.DownloadURL)
	}

	auto := h.add(t, "x", "", true)

	resp, err = h.svc.AuthorizeDownload(ctx, auto.ID, "")
	if err != nil {
		t.Fatalf("authorize auto-delete: %v", err)
	}

	if !strings.HasPrefix(resp.DownloadURL, "/api/v1/download/consume/"+auto.ID+".") {
		t.Errorf("auto-delete url = %q", resp.DownloadURL)
	}

	if _, err := h.svc.AuthorizeDownload(ctx, "missing", ""); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("missing file = %v", err)
	}
}

func TestPassword(t *testing.T) {
	hash, salt, err := catalog.HashPassword("pa55", 1000)
	if err != nil {
		t.Fatal(err)
	}

	if !catalog.VerifyPassword("pa55", salt, hash, 1000) {
		t.Error("correct password rejected")
	}

	if catalog.VerifyPassword("pa56", salt, hash, 1000) {
		t.Error("wrong password accepted")
	}

	if catalog.VerifyPassword("pa55", salt, hash, 2000) {
		t.Error("iteration mismatch accepted")
	}
}

func TestParseToken(t *testing.T) {
	id, secret, ok := catalog.ParseToken("01H.abc")
	if !ok || id != "01H" || secret != "abc" {
		t.Errorf("parse = %q %q %v", id, secret, ok)
	}

	for _, raw := range []string{"abc", ".abc", "abc.", "a.b.c"} {
		if _, _, ok := catalog.ParseToken(raw); ok {
			t.Errorf("parse %q accepted", raw)
		}
	}
}
