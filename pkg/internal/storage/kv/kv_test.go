package kv_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/yeisme/quickdrop/pkg/configs"
	"github.com/yeisme/quickdrop/pkg/internal/storage/kv"
)

func exercise(t *testing.T, store kv.Store) {
	t.Helper()

	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("missing key err = %v", err)
	}

	if err := store.Set(ctx, "quickdrop.tombstone.a", []byte("short"), 30*time.Millisecond); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := store.Set(ctx, "quickdrop.tombstone.b", []byte("forever"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := store.Set(ctx, "other", []byte("x"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.Get(ctx, "quickdrop.tombstone.a")
	if err != nil || string(got) != "short" {
		t.Fatalf("get before expiry = %q, %v", got, err)
	}

	time.Sleep(80 * time.Millisecond)

	if _, err := store.Get(ctx, "quickdrop.tombstone.a"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound after expiry, got %v", err)
	}

	keys, err := store.Keys(ctx, "quickdrop.tombstone.*")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}

	if !slices.Equal(keys, []string{"quickdrop.tombstone.b"}) {
		t.Errorf("keys = %v", keys)
	}

	if err := store.Delete(ctx, "other"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := store.Get(ctx, "other"); !errors.Is(err, kv.ErrKeyNotFound) {
		t.Errorf("deleted key err = %v", err)
	}
}

func TestMemoryKV(t *testing.T) {
	exercise(t, kv.NewMemoryKV())
}

func TestMemoryKVCopiesValues(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryKV()

	buf := []byte("abc")
	_ = store.Set(ctx, "k", buf, 0)
	buf[0] = 'z'

	got, _ := store.Get(ctx, "k")
	got[1] = 'z'

	again, _ := store.Get(ctx, "k")
	if string(again) != "abc" {
		t.Errorf("stored value mutated: %q", again)
	}
}

func TestGroupcacheKV(t *testing.T) {
	store, err := kv.NewGroupcacheKV("test-groupcache-kv", 1<<20)
	if err != nil {
		t.Fatalf("create groupcache kv: %v", err)
	}

	if _, err := kv.NewGroupcacheKV("test-groupcache-kv", 1<<20); err == nil {
		t.Error("expected error for duplicate group name")
	}

	exercise(t, store)
}

func TestClient(t *testing.T) {
	ctx := context.Background()
	cfg := configs.Defaults().KV

	client, err := kv.New(ctx, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer client.Close()

	if client.Type() != kv.TypeMemory {
		t.Errorf("type = %s", client.Type())
	}

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("health: %v", err)
	}

	cfg.Type = "etcd"
	if _, err := kv.New(ctx, cfg); err == nil {
		t.Error("expected error for unsupported type")
	}
}

func TestRegisteredTypes(t *testing.T) {
	types := kv.GetRegisteredKVTypes()

	for _, want := range []kv.Type{kv.TypeMemory, kv.TypeRedis, kv.TypeNATS, kv.TypeGroupcache} {
		if !slices.Contains(types, want) {
			t.Errorf("%s not registered", want)
		}
	}
}

// 设置 QUICKDROP_TEST_REDIS 或 QUICKDROP_TEST_NATS 后对真实服务运行同一组用例.
func TestRemoteBackends(t *testing.T) {
	cases := []struct {
		kind kv.Type
		env  string
		set  func(c *configs.KVConfig, addr string)
	}{
		{kv.TypeRedis, "QUICKDROP_TEST_REDIS", func(c *configs.KVConfig, addr string) { c.Redis.Addr = addr }},
		{kv.TypeNATS, "QUICKDROP_TEST_NATS", func(c *configs.KVConfig, addr string) {
			c.NATS.URL = addr
			c.NATS.Bucket = fmt.Sprintf("quickdrop-test-%d", time.Now().UnixNano())
		}},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			addr := os.Getenv(tc.env)
			if addr == "" {
				t.Skipf("%s not set", tc.env)
			}

			cfg := configs.Defaults().KV
			cfg.Type = string(tc.kind)
			tc.set(&cfg, addr)

			client, err := kv.New(context.Background(), cfg)
			if err != nil {
				t.Fatalf("connect: %v", err)
			}
			defer client.Close()

			for _, k := range []string{"missing", "quickdrop.tombstone.a", "quickdrop.tombstone.b", "other"} {
				_ = client.Delete(context.Background(), k)
			}

			exercise(t, client)
		})
	}
}

func BenchmarkMemoryKV(b *testing.B) {
	ctx := context.Background()
	store := kv.NewMemoryKV()
	payload := make([]byte, 1024)

	b.ReportAllocs()

	for i := 0; b.Loop(); i++ {
		key := fmt.Sprintf("bench-%d", i)
		if err := store.Set(ctx, key, payload, time.Minute); err != nil {
			b.Fatal(err)
		}

		if _, err := store.Get(ctx, key); err != nil {
			b.Fatal(err)
		}
	}
}
