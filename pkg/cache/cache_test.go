package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeisme/quickdrop/pkg/cache"
	"github.com/yeisme/quickdrop/pkg/internal/storage/kv"
)

type view struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestGetSet(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(kv.NewMemoryKV())

	if _, err := cache.Get[view](ctx, c, "missing"); !errors.Is(err, cache.ErrMiss) {
		t.Fatalf("err = %v, want ErrMiss", err)
	}

	want := view{ID: 1, Name: "a.txt"}
	if err := cache.Set(ctx, c, "v:1", want, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := cache.Get[view](ctx, c, "v:1")
	if err != nil || got != want {
		t.Fatalf("get = %+v, %v", got, err)
	}

	if err := c.Delete(ctx, "v:1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := cache.Get[view](ctx, c, "v:1"); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("after delete err = %v", err)
	}
}

func TestPrefix(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryKV()
	c := cache.NewCache(store, cache.WithPrefix("qd:"))

	if err := cache.Set(ctx, c, "k", 42, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	raw, err := store.Get(ctx, "qd:k")
	if err != nil || string(raw) != "42" {
		t.Fatalf("raw = %q, %v", raw, err)
	}
}

func TestDecodeError(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryKV()
	c := cache.NewCache(store)

	_ = store.Set(ctx, "bad", []byte("{"), 0)

	if _, err := cache.Get[view](ctx, c, "bad"); err == nil || errors.Is(err, cache.ErrMiss) {
		t.Errorf("err = %v, want decode error", err)
	}
}

func TestTombstones(t *testing.T) {
	ctx := context.Background()
	ts := cache.NewTombstones(cache.NewCache(kv.NewMemoryKV()), time.Minute)

	if _, ok, err := ts.Lookup(ctx, "tok"); ok || err != nil {
		t.Fatalf("lookup before mark: ok=%v err=%v", ok, err)
	}

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := ts.Mark(ctx, "tok", cache.Tombstone{FileName: "a.bin", SizeBytes: 3, ConsumedAt: now}); err != nil {
		t.Fatalf("mark: %v", err)
	}

	got, ok, err := ts.Lookup(ctx, "tok")
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}

	if got.FileName != "a.bin" || !got.ConsumedAt.Equal(now) {
		t.Errorf("tombstone = %+v", got)
	}

	var disabled *cache.Tombstones
	if err := disabled.Mark(ctx, "x", cache.Tombstone{}); err != nil {
		t.Errorf("nil tombstones mark: %v", err)
	}

	if _, ok, _ := disabled.Lookup(ctx, "x"); ok {
		t.Error("nil tombstones lookup found a value")
	}
}
