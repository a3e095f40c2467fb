package quota

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/twiller/internal/common"
	"github.com/example/twiller/internal/models"
	"github.com/example/twiller/internal/repository"
)

var errStoreDown = errors.New("connection refused")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// brokenStore fails every subscription call.
type brokenStore struct{ Store }

func (brokenStore) ActiveSubscription(context.Context, uuid.UUID) (*models.Subscription, error) {
	return nil, errStoreDown
}

func (brokenStore) LatestSubscription(context.Context, uuid.UUID) (*models.Subscription, error) {
	return nil, errStoreDown
}

type fixture struct {
	store   *repository.MemoryStore
	clock   *testClock
	svc     *Service
	account *models.Account
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	account := &models.Account{Email: "ravi@example.com", Username: "ravi"}
	require.NoError(t, store.CreateAccount(context.Background(), account))

	clk := &testClock{now: now}
	return &fixture{
		store:   store,
		clock:   clk,
		svc:     NewService(store, store, clk, nil, Options{FailOpen: true}),
		account: account,
	}
}

func TestRemainingTweets(t *testing.T) {
	tests := []struct {
		name    string
		allowed int
		posted  int
		want    int
		canPost bool
	}{
		{"unlimited fresh", -1, 0, -1, true},
		{"unlimited heavy use", -1, 500, -1, true},
		{"free unused", 1, 0, 1, true},
		{"free used", 1, 1, 0, false},
		{"silver partly used", 5, 2, 3, true},
		{"over counted clamps", 3, 7, 0, false},
		{"zero allowance", 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &models.Subscription{TweetsAllowed: tt.allowed, TweetsPosted: tt.posted}
			assert.Equal(t, tt.want, RemainingTweets(sub))
			assert.Equal(t, tt.canPost, CanPost(sub))
		})
	}
}

func TestNeedsReset(t *testing.T) {
	tests := []struct {
		name      string
		lastReset time.Time
		now       time.Time
		want      bool
	}{
		{"month boundary under a day", time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"same month", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 28, 23, 0, 0, 0, time.UTC), false},
		{"year boundary", time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"several months", time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"same month one year later", time.Date(2023, 2, 10, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &models.Subscription{LastResetAt: tt.lastReset}
			assert.Equal(t, tt.want, NeedsReset(sub, tt.now))
		})
	}
}

func TestMonthIndexUsesUTC(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 2024-02-01 02:00 IST is still January in UTC.
	local := time.Date(2024, 2, 1, 2, 0, 0, 0, ist)
	assert.Equal(t, MonthIndex(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)), MonthIndex(local))
}

func TestCheckAndMaybeResetCreatesFreeSubscription(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, now)

	sub, err := f.svc.CheckAndMaybeReset(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, sub.Plan)
	assert.Equal(t, models.SubscriptionActive, sub.Status)
	assert.Equal(t, 1, sub.TweetsAllowed)
	assert.Equal(t, 0, sub.TweetsPosted)
	assert.Equal(t, now, sub.LastResetAt)

	again, err := f.svc.CheckAndMaybeReset(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID, "second call must reuse the active record")
}

func TestCheckAndMaybeResetUnknownAccount(t *testing.T) {
	f := newFixture(t, time.Now())

	_, err := f.svc.CheckAndMaybeReset(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRecordPostWithoutActiveSubscriptionIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now())

	require.NoError(t, f.svc.RecordPost(ctx, f.account.ID))

	_, err := f.store.LatestSubscription(ctx, f.account.ID)
	assert.ErrorIs(t, err, common.ErrNotFound, "record post must not create a subscription")
}

func TestRecordPostUnlimitedNeverCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now())
	require.NoError(t, f.store.CreateSubscription(ctx, &models.Subscription{
		AccountID:     f.account.ID,
		Plan:          models.PlanGold,
		Status:        models.SubscriptionActive,
		TweetsAllowed: models.UnlimitedTweets,
		LastResetAt:   f.clock.Now(),
	}))

	for range 5 {
		require.NoError(t, f.svc.RecordPost(ctx, f.account.ID))
	}

	sub, err := f.store.ActiveSubscription(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.TweetsPosted)
}

func TestRecordPostStopsAtAllowance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now())
	_, err := f.svc.CheckAndMaybeReset(ctx, f.account.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.RecordPost(ctx, f.account.ID))
	assert.ErrorIs(t, f.svc.RecordPost(ctx, f.account.ID), common.ErrQuotaExceeded)

	sub, err := f.store.ActiveSubscription(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.TweetsPosted)
}

func TestFreePlanLifecycleAcrossMonths(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC))

	sub, err := f.svc.CheckAndMaybeReset(ctx, f.account.ID)
	require.NoError(t, err)
	assert.True(t, CanPost(sub))

	require.NoError(t, f.svc.RecordPost(ctx, f.account.ID))

	sub, err = f.svc.CheckAndMaybeReset(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.TweetsPosted)
	assert.False(t, CanPost(sub))

	f.clock.set(time.Date(2024, 2, 1, 0, 30, 0, 0, time.UTC))
	sub, err = f.svc.CheckAndMaybeReset(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.TweetsPosted)
	assert.True(t, CanPost(sub))

	stored, err := f.store.ActiveSubscription(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TweetsPosted, "reset must be persisted")
}

func TestRecordPostAppliesMonthReset(t *testing.T) {
	ctx := context.Background()

	t.Run("free plan counts into the new month", func(t *testing.T) {
		f := newFixture(t, time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC))
		_, err := f.svc.Allowance(ctx, f.account.ID)
		require.NoError(t, err)
		require.NoError(t, f.svc.RecordPost(ctx, f.account.ID))

		feb := time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC)
		f.clock.set(feb)
		require.NoError(t, f.svc.RecordPost(ctx, f.account.ID))

		sub, err := f.store.ActiveSubscription(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, sub.TweetsPosted)
		assert.True(t, sub.LastResetAt.Equal(feb))
	})

	t.Run("paid plan keeps the post after the next allowance query", func(t *testing.T) {
		f := newFixture(t, time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC))
		require.NoError(t, f.store.CreateSubscription(ctx, &models.Subscription{
			AccountID:     f.account.ID,
			Plan:          models.PlanSilver,
			Status:        models.SubscriptionActive,
			TweetsAllowed: 5,
			TweetsPosted:  2,
			LastResetAt:   f.clock.Now(),
		}))

		f.clock.set(time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC))
		require.NoError(t, f.svc.RecordPost(ctx, f.account.ID))

		allowance, err := f.svc.Allowance(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, allowance.TweetsPosted)
		assert.Equal(t, 4, allowance.TweetsRemaining)
	})
}

func TestRecordPostSerializesPerAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now())
	require.NoError(t, f.store.CreateSubscription(ctx, &models.Subscription{
		AccountID:     f.account.ID,
		Plan:          models.PlanBronze,
		Status:        models.SubscriptionActive,
		TweetsAllowed: 3,
		LastResetAt:   f.clock.Now(),
	}))

	var ok, exceeded atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := f.svc.RecordPost(ctx, f.account.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, common.ErrQuotaExceeded):
				exceeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), ok.Load())
	assert.Equal(t, int32(7), exceeded.Load())
	assert.Equal(t, 0, f.svc.locks.size())
}

func TestPostWithQuota(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and counts", func(t *testing.T) {
		f := newFixture(t, time.Now())
		created := 0

		err := f.svc.PostWithQuota(ctx, f.account.ID, func(context.Context) error {
			created++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, created)

		err = f.svc.PostWithQuota(ctx, f.account.ID, func(context.Context) error {
			created++
			return nil
		})
		assert.ErrorIs(t, err, common.ErrQuotaExceeded)
		assert.Equal(t, 1, created, "exceeded quota must not create content")
	})

	t.Run("failed create is not counted", func(t *testing.T) {
		f := newFixture(t, time.Now())
		boom := errors.New("insert failed")

		err := f.svc.PostWithQuota(ctx, f.account.ID, func(context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)

		allowance, err := f.svc.Allowance(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, allowance.TweetsPosted)
	})

	t.Run("unknown account blocks", func(t *testing.T) {
		f := newFixture(t, time.Now())
		called := false

		err := f.svc.PostWithQuota(ctx, uuid.New(), func(context.Context) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, common.ErrNotFound)
		assert.False(t, called)
	})
}

func TestStoreFailurePolicy(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	account := &models.Account{Email: "a@example.com"}
	require.NoError(t, store.CreateAccount(ctx, account))
	clk := &testClock{now: time.Now()}

	t.Run("tweet path fails open", func(t *testing.T) {
		svc := NewService(brokenStore{Store: store}, store, clk, nil, Options{FailOpen: true})
		called := false

		err := svc.PostWithQuota(ctx, account.ID, func(context.Context) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("tweet path fails closed when configured", func(t *testing.T) {
		svc := NewService(brokenStore{Store: store}, store, clk, nil, Options{FailOpen: false})
		called := false

		err := svc.PostWithQuota(ctx, account.ID, func(context.Context) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, errStoreDown)
		assert.False(t, called)
	})

	t.Run("allowance query always fails closed", func(t *testing.T) {
		svc := NewService(brokenStore{Store: store}, store, clk, nil, Options{FailOpen: true})

		_, err := svc.Allowance(ctx, account.ID)
		assert.ErrorIs(t, err, errStoreDown)
	})
}

func TestPostWithQuotaSerializesPerAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now())
	require.NoError(t, f.store.CreateSubscription(ctx, &models.Subscription{
		AccountID:     f.account.ID,
		Plan:          models.PlanSilver,
		Status:        models.SubscriptionActive,
		TweetsAllowed: 5,
		LastResetAt:   f.clock.Now(),
	}))

	var created atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = f.svc.PostWithQuota(ctx, f.account.ID, func(context.Context) error {
				created.Add(1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), created.Load())
	sub, err := f.store.ActiveSubscription(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, sub.TweetsPosted)
	assert.Equal(t, 0, f.svc.locks.size())
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	inside := time.Date(2024, 6, 1, 4, 30, 0, 0, time.UTC)  // 10:00 shifted
	outside := time.Date(2024, 6, 1, 5, 30, 0, 0, time.UTC) // 11:00 shifted

	t.Run("outside payment window", func(t *testing.T) {
		f := newFixture(t, outside)

		_, err := f.svc.Subscribe(ctx, f.account.ID, models.PlanGold)
		assert.ErrorIs(t, err, common.ErrOutsideWindow)
	})

	t.Run("gold inside window", func(t *testing.T) {
		f := newFixture(t, inside)

		sub, err := f.svc.Subscribe(ctx, f.account.ID, models.PlanGold)
		require.NoError(t, err)
		assert.Equal(t, models.UnlimitedTweets, sub.TweetsAllowed)
		assert.Equal(t, 0, sub.TweetsPosted)
		assert.Equal(t, models.SubscriptionActive, sub.Status)
		require.NotNil(t, sub.ValidUntil)
		assert.Equal(t, inside.Add(30*24*time.Hour), *sub.ValidUntil)
		assert.Regexp(t, `^pay_[0-9A-Z]{26}$`, sub.PaymentRef)
	})

	t.Run("replaces previous active plan", func(t *testing.T) {
		f := newFixture(t, inside)
		first, err := f.svc.CheckAndMaybeReset(ctx, f.account.ID)
		require.NoError(t, err)

		sub, err := f.svc.Subscribe(ctx, f.account.ID, models.PlanBronze)
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, sub.ID)

		active, err := f.store.ActiveSubscription(ctx, f.account.ID)
		require.NoError(t, err)
		assert.Equal(t, sub.ID, active.ID)
		assert.Equal(t, 3, active.TweetsAllowed)
	})

	t.Run("unsupported plan", func(t *testing.T) {
		f := newFixture(t, inside)

		_, err := f.svc.Subscribe(ctx, f.account.ID, "platinum")
		assert.ErrorIs(t, err, common.ErrUnsupportedPlan)
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newFixture(t, inside)

		_, err := f.svc.Subscribe(ctx, uuid.New(), models.PlanGold)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestCurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Now())

	sub, err := f.svc.Current(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlanFree, sub.Plan)
	assert.Equal(t, uuid.Nil, sub.ID, "default plan is not persisted")

	cancelled := &models.Subscription{
		AccountID:     f.account.ID,
		Plan:          models.PlanSilver,
		Status:        models.SubscriptionCancelled,
		TweetsAllowed: 5,
	}
	require.NoError(t, f.store.CreateSubscription(ctx, cancelled))

	sub, err = f.svc.Current(ctx, f.account.ID)
	require.NoError(t, err)
	assert.Equal(t, cancelled.ID, sub.ID)
}

func TestPlans(t *testing.T) {
	plans := Plans()
	require.Len(t, plans, 4)
	assert.Equal(t, models.PlanFree, plans[0].Tier)
	assert.Equal(t, models.PlanGold, plans[3].Tier)
	assert.Equal(t, "300", plans[2].Price.String())

	_, err := LookupPlan("diamond")
	assert.ErrorIs(t, err, common.ErrUnsupportedPlan)
}

func TestAccountLockerReleases(t *testing.T) {
	l := newAccountLocker()
	id := uuid.New()

	release := l.Lock(id)
	assert.Equal(t, 1, l.size())
	release()
	assert.Equal(t, 0, l.size())
}
