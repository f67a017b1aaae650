package kv

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yeisme/quickdrop/pkg/configs"
)

// NATSKV JetStream KV bucket. bucket 只支持统一的 MaxAge，按键 TTL 写在值头部.
type NATSKV struct {
	nc     *nats.Conn
	bucket nats.KeyValue
	now    func() time.Time
}

func newNATSKV(_ context.Context, cfg configs.KVConfig) (Store, error) {
	n := cfg.NATS

	opts := []nats.Option{nats.Name("quickdrop-kv")}
	if n.User != "" {
		opts = append(opts, nats.UserInfo(n.User, n.Password))
	}

	if cfg.Timeout > 0 {
		opts = append(opts, nats.Timeout(cfg.Timeout))
	}

	nc, err := nats.Connect(n.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", n.URL, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("jetstream: %w", err)
	}

	bucket, err := js.KeyValue(n.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		bucket, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:      n.Bucket,
			Description: "quickdrop short-lived state",
			History:     n.History,
			TTL:         n.MaxAge,
		})
	}

	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("open kv bucket %s: %w", n.Bucket, err)
	}

	return &NATSKV{nc: nc, bucket: bucket, now: time.Now}, nil
}

func (n *NATSKV) Get(_ context.Context, key string) ([]byte, error) {
	entry, err := n.bucket.Get(key)

	switch {
	case errors.Is(err, nats.ErrKeyNotFound):
		return nil, notFound(key)
	case err != nil:
		return nil, fmt.Errorf("nats kv get %s: %w", key, err)
	}

	value, expired := unseal(entry.Value(), n.now())
	if expired {
		// 仅在版本未变时清理，避免删掉并发写入的新值
		_ = n.bucket.Delete(key, nats.LastRevision(entry.Revision()))

		return nil, notFound(key)
	}

	return value, nil
}

func (n *NATSKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := n.bucket.Put(key, seal(value, ttl, n.now())); err != nil {
		return fmt.Errorf("nats kv put %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Delete(_ context.Context, key string) error {
	if err := n.bucket.Delete(key); err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("nats kv delete %s: %w", key, err)
	}

	return nil
}

func (n *NATSKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	all, err := n.bucket.Keys()

	switch {
	case errors.Is(err, nats.ErrNoKeysFound):
		return []string{}, nil
	case err != nil:
		return nil, fmt.Errorf("nats kv keys: %w", err)
	}

	keys := make([]string, 0, len(all))

	for _, k := range all {
		if !match(pattern, k) {
			continue
		}

		if _, err := n.Get(ctx, k); err == nil {
			keys = append(keys, k)
		}
	}

	slices.Sort(keys)

	return keys, nil
}

func (n *NATSKV) Close() error {
	return n.nc.Drain()
}

func init() {
	register(TypeNATS, newNATSKV)
}
