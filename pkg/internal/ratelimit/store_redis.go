package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix  = "quickdrop:ratelimit:"
	redisTxAttempts = 5
)

// RedisStore 基于 Redis WATCH/MULTI 的计数存储.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (Decision, error) {
	k := redisKeyPrefix + key

	var d Decision

	txf := func(tx *redis.Tx) error {
		vals, err := tx.HMGet(ctx, k, "start", "count").Result()
		if err != nil {
			return err
		}

		start, count, exists := parseWindow(vals)

		var write bool

		d, write = decide(start, count, exists, now, window, limit)
		if !write {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, k, "start", d.WindowStart.UnixMilli(), "count", d.Count)
			p.PExpireAt(ctx, k, d.WindowStart.Add(window))

			return nil
		})

		return err
	}

	for range redisTxAttempts {
		err := s.client.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return Decision{}, fmt.Errorf("redis rate limit: %w", err)
		}

		return d, nil
	}

	return Decision{}, errors.New("redis rate limit: too much contention")
}

func parseWindow(vals []any) (time.Time, int, bool) {
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return time.Time{}, 0, false
	}

	startStr, _ := vals[0].(string)
	countStr, _ := vals[1].(string)

	ms, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return time.Time{}, 0, false
	}

	count, err := strconv.Atoi(countStr)
	if err != nil {
		return time.Time{}, 0, false
	}

	return time.UnixMilli(ms).UTC(), count, true
}
