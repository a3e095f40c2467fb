package otp

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/twiller/internal/clock"
	"github.com/example/twiller/internal/common"
)

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func newTestService(store Store, c *testClock) *Service {
	return NewService(store, c, nil, Options{TTL: 10 * time.Minute, Rand: zeroReader{}, HashCost: bcrypt.MinCost})
}

func TestIssueProducesSixDigitsWithLeadingZeros(t *testing.T) {
	svc := NewService(NewMemoryStore(), newTestClock(), nil, Options{
		Rand:     bytes.NewReader([]byte{0x01, 0x00, 0x07}),
		HashCost: bcrypt.MinCost,
	})

	code, err := svc.Issue(context.Background(), "acc:login", "login", ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, "065543", code)
}

func TestIssueStoresOnlyHash(t *testing.T) {
	store := NewMemoryStore()
	c := newTestClock()
	svc := newTestService(store, c)

	code, err := svc.Issue(context.Background(), "k", "audio-upload", ChannelEmail)
	require.NoError(t, err)
	assert.Equal(t, "000000", code)

	ch, err := store.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.NotEqual(t, code, ch.CodeHash)
	assert.Equal(t, "audio-upload", ch.Purpose)
	assert.Equal(t, ChannelEmail, ch.Channel)
	assert.Equal(t, c.now.Add(10*time.Minute), ch.ExpiresAt)
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("correct code consumes challenge", func(t *testing.T) {
		svc := newTestService(NewMemoryStore(), newTestClock())
		code, err := svc.Issue(ctx, "k", "login", ChannelEmail)
		require.NoError(t, err)

		require.NoError(t, svc.Verify(ctx, "k", code))
		assert.ErrorIs(t, svc.Verify(ctx, "k", code), common.ErrNotFound)
	})

	t.Run("mismatch keeps challenge", func(t *testing.T) {
		svc := newTestService(NewMemoryStore(), newTestClock())
		code, err := svc.Issue(ctx, "k", "login", ChannelEmail)
		require.NoError(t, err)

		assert.ErrorIs(t, svc.Verify(ctx, "k", "123456"), common.ErrOTPMismatch)
		assert.NoError(t, svc.Verify(ctx, "k", code))
	})

	t.Run("unknown key", func(t *testing.T) {
		svc := newTestService(NewMemoryStore(), newTestClock())
		assert.ErrorIs(t, svc.Verify(ctx, "missing", "000000"), common.ErrNotFound)
	})

	t.Run("expired challenge is removed", func(t *testing.T) {
		c := newTestClock()
		store := NewMemoryStore()
		svc := newTestService(store, c)
		code, err := svc.Issue(ctx, "k", "login", ChannelEmail)
		require.NoError(t, err)

		c.advance(10*time.Minute + time.Second)
		assert.ErrorIs(t, svc.Verify(ctx, "k", code), common.ErrOTPExpired)

		_, err = store.Load(ctx, "k")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("expiry instant itself is still valid", func(t *testing.T) {
		c := newTestClock()
		svc := newTestService(NewMemoryStore(), c)
		code, err := svc.Issue(ctx, "k", "login", ChannelEmail)
		require.NoError(t, err)

		c.advance(10 * time.Minute)
		assert.NoError(t, svc.Verify(ctx, "k", code))
	})

	t.Run("reissue replaces previous code", func(t *testing.T) {
		svc := NewService(NewMemoryStore(), newTestClock(), nil, Options{
			Rand:     bytes.NewReader([]byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x02}),
			HashCost: bcrypt.MinCost,
		})
		first, err := svc.Issue(ctx, "k", "login", ChannelEmail)
		require.NoError(t, err)
		second, err := svc.Issue(ctx, "k", "login", ChannelEmail)
		require.NoError(t, err)
		require.NotEqual(t, first, second)

		assert.ErrorIs(t, svc.Verify(ctx, "k", first), common.ErrOTPMismatch)
		assert.NoError(t, svc.Verify(ctx, "k", second))
	})
}

func TestVerifyPurpose(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(NewMemoryStore(), newTestClock())

	code, err := svc.Issue(ctx, "k", "language:fr", ChannelEmail)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.VerifyPurpose(ctx, "k", "language:es", code), common.ErrOTPMismatch)
	assert.NoError(t, svc.VerifyPurpose(ctx, "k", "language:fr", code))
}

func TestNewServiceDefaults(t *testing.T) {
	svc := NewService(NewMemoryStore(), clock.System{}, nil, Options{HashCost: 99})
	assert.Equal(t, DefaultTTL, svc.TTL())
	assert.Equal(t, bcrypt.DefaultCost, svc.hashCost)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := newTestClock()
	store := NewRedisStore(client, c)
	svc := newTestService(store, c)

	code, err := svc.Issue(ctx, "acc:audio", "audio-upload", ChannelEmail)
	require.NoError(t, err)
	assert.True(t, mr.Exists("otp:acc:audio"))

	ttl := mr.TTL("otp:acc:audio")
	assert.Equal(t, 10*time.Minute+expiredRetention, ttl)

	assert.ErrorIs(t, svc.Verify(ctx, "acc:audio", "999999"), common.ErrOTPMismatch)
	require.NoError(t, svc.Verify(ctx, "acc:audio", code))
	assert.False(t, mr.Exists("otp:acc:audio"))
}

func TestRedisStoreReportsExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := newTestClock()
	svc := newTestService(NewRedisStore(client, c), c)

	code, err := svc.Issue(ctx, "k", "login", ChannelEmail)
	require.NoError(t, err)

	c.advance(11 * time.Minute)
	mr.FastForward(11 * time.Minute)
	assert.ErrorIs(t, svc.Verify(ctx, "k", code), common.ErrOTPExpired)
	assert.False(t, mr.Exists("otp:k"))
}

// verifyConcurrently races n verifications of one code and returns how many
// succeeded. Every other attempt must report the challenge as gone.
func verifyConcurrently(t *testing.T, svc *Service, key, code string, n int) int32 {
	t.Helper()

	var verified, gone atomic.Int32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Verify(context.Background(), key, code)
			switch {
			case err == nil:
				verified.Add(1)
			case errors.Is(err, common.ErrNotFound):
				gone.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(n), verified.Load()+gone.Load())
	return verified.Load()
}

func TestVerifyConsumesOnce(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		svc := newTestService(NewMemoryStore(), newTestClock())
		code, err := svc.Issue(context.Background(), "k", "login", ChannelEmail)
		require.NoError(t, err)

		assert.Equal(t, int32(1), verifyConcurrently(t, svc, "k", code, 8))
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		c := newTestClock()
		svc := newTestService(NewRedisStore(client, c), c)
		code, err := svc.Issue(context.Background(), "k", "login", ChannelEmail)
		require.NoError(t, err)

		assert.Equal(t, int32(1), verifyConcurrently(t, svc, "k", code, 8))
		assert.False(t, mr.Exists("otp:k"))
	})
}

func TestConsumeLeavesReissuedChallenge(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := newTestClock()
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  NewRedisStore(client, c),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(ctx, name, Challenge{CodeHash: "old", ExpiresAt: c.now.Add(time.Minute)}))
			require.NoError(t, store.Save(ctx, name, Challenge{CodeHash: "new", ExpiresAt: c.now.Add(time.Minute)}))

			ok, err := store.Consume(ctx, name, "old")
			require.NoError(t, err)
			assert.False(t, ok)

			ch, err := store.Load(ctx, name)
			require.NoError(t, err)
			assert.Equal(t, "new", ch.CodeHash)

			ok, err = store.Consume(ctx, name, "new")
			require.NoError(t, err)
			assert.True(t, ok)

			_, err = store.Load(ctx, name)
			assert.ErrorIs(t, err, common.ErrNotFound)
		})
	}
}

func TestRedisStoreMissingKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewRedisStore(client, clock.System{}).Load(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
