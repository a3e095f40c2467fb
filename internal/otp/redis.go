package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/twiller/internal/clock"
	"github.com/example/twiller/internal/common"
)

const redisNamespace = "otp"

// expiredRetention keeps a challenge readable for a while after it expires
// so verification can report ErrOTPExpired instead of ErrNotFound.
const expiredRetention = time.Hour

// RedisStore shares challenges between instances.
type RedisStore struct {
	client redis.UniversalClient
	clock  clock.Clock
}

func NewRedisStore(client redis.UniversalClient, clk clock.Clock) *RedisStore {
	return &RedisStore{client: client, clock: clk}
}

func (r *RedisStore) key(key string) string {
	return redisNamespace + ":" + key
}

func (r *RedisStore) Save(ctx context.Context, key string, ch Challenge) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}

	ttl := ch.ExpiresAt.Sub(r.clock.Now()) + expiredRetention
	if ttl <= 0 {
		ttl = expiredRetention
	}
	return r.client.Set(ctx, r.key(key), payload, ttl).Err()
}

func (r *RedisStore) Load(ctx context.Context, key string) (Challenge, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Challenge{}, common.ErrNotFound
	}
	if err != nil {
		return Challenge{}, err
	}

	var ch Challenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return Challenge{}, fmt.Errorf("decode challenge: %w", err)
	}
	return ch, nil
}

// Consume deletes inside a WATCH transaction, so a concurrent consume or a
// re-issue of the key makes this call report false.
func (r *RedisStore) Consume(ctx context.Context, key, codeHash string) (bool, error) {
	k := r.key(key)
	consumed := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		var ch Challenge
		if err := json.Unmarshal(raw, &ch); err != nil {
			return fmt.Errorf("decode challenge: %w", err)
		}
		if ch.CodeHash != codeHash {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, k)
			return nil
		})
		if err != nil {
			return err
		}
		consumed = true
		return nil
	}, k)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return consumed, nil
}
