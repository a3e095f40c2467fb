// Package quota owns subscription plans and the monthly tweet allowance.
//
// Every tweet-creation path goes through Service.PostWithQuota, and the
// explicit allowance query goes through Service.Allowance. Both share one
// lookup-or-create path, so the reset and increment rules live in one place.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/example/twiller/internal/clock"
	"github.com/example/twiller/internal/common"
	"github.com/example/twiller/internal/metrics"
	"github.com/example/twiller/internal/models"
	"github.com/example/twiller/internal/window"
)

// DefaultValidity is how long a purchased plan stays valid.
const DefaultValidity = 30 * 24 * time.Hour

// Store persists subscription records.
type Store interface {
	// ActiveSubscription returns common.ErrNotFound when the account has no
	// active record.
	ActiveSubscription(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
	// LatestSubscription returns the most recent record of any status.
	LatestSubscription(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
	// CreateSubscription returns common.ErrConflict when an active record
	// already exists for the account.
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
	// IncrementTweetsPosted adds one to tweets_posted only while it is below
	// tweets_allowed and reports whether the row changed.
	IncrementTweetsPosted(ctx context.Context, subscriptionID uuid.UUID) (bool, error)
	// ReplaceActiveSubscription cancels the account's active records and
	// stores sub as the new active one, atomically.
	ReplaceActiveSubscription(ctx context.Context, sub *models.Subscription) error
}

// AccountFinder resolves account ids.
type AccountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Options tune the service.
type Options struct {
	// FailOpen lets PostWithQuota create content when the subscription store
	// errors. Quota exhaustion and unknown accounts always block.
	FailOpen bool
	Validity time.Duration
}

// Allowance is the caller-facing view of a subscription's usage.
type Allowance struct {
	Plan            models.PlanTier `json:"plan"`
	TweetsAllowed   int             `json:"tweets_allowed"`
	TweetsPosted    int             `json:"tweets_posted"`
	TweetsRemaining int             `json:"tweets_remaining"`
	CanTweet        bool            `json:"can_tweet"`
	ValidUntil      *time.Time      `json:"valid_until"`
}

type Service struct {
	store    Store
	accounts AccountFinder
	clock    clock.Clock
	logger   *zap.Logger
	failOpen bool
	validity time.Duration
	locks    *accountLocker

	newPaymentRef func() string
}

func NewService(store Store, accounts AccountFinder, clk clock.Clock, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Validity <= 0 {
		opts.Validity = DefaultValidity
	}
	return &Service{
		store:         store,
		accounts:      accounts,
		clock:         clk,
		logger:        logger.Named("quota"),
		failOpen:      opts.FailOpen,
		validity:      opts.Validity,
		locks:         newAccountLocker(),
		newPaymentRef: func() string { return "pay_" + ulid.Make().String() },
	}
}

// MonthIndex maps t to year*12 + month (UTC), so consecutive calendar
// months differ by exactly one.
func MonthIndex(t time.Time) int {
	u := t.UTC()
	return u.Year()*12 + int(u.Month()) - 1
}

// NeedsReset reports whether now falls in a later calendar month than the
// subscription's last reset.
func NeedsReset(sub *models.Subscription, now time.Time) bool {
	return MonthIndex(now)-MonthIndex(sub.LastResetAt) >= 1
}

// RemainingTweets returns -1 for unlimited plans, otherwise the unused
// allowance clamped at zero.
func RemainingTweets(sub *models.Subscription) int {
	if sub.Unlimited() {
		return models.UnlimitedTweets
	}
	return max(0, sub.TweetsAllowed-sub.TweetsPosted)
}

// CanPost reports whether another tweet fits the allowance.
func CanPost(sub *models.Subscription) bool {
	remaining := RemainingTweets(sub)
	return remaining == models.UnlimitedTweets || remaining > 0
}

// CheckAndMaybeReset returns the account's active subscription, creating a
// free one when none exists and zeroing the counter on month rollover.
func (s *Service) CheckAndMaybeReset(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	if err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	sub, err := s.activeSubscription(ctx, accountID, true)
	if err != nil {
		return nil, err
	}

	if err := s.resetIfDue(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// resetIfDue zeroes the counter when the calendar month changed since the
// last reset.
func (s *Service) resetIfDue(ctx context.Context, sub *models.Subscription) error {
	now := s.clock.Now()
	if !NeedsReset(sub, now) {
		return nil
	}

	sub.TweetsPosted = 0
	sub.LastResetAt = now
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return fmt.Errorf("reset tweet count: %w", err)
	}
	metrics.QuotaResets.Inc()
	s.logger.Debug("tweet count reset", zap.Stringer("account_id", sub.AccountID))
	return nil
}

// RecordPost counts one created tweet against the active subscription,
// applying a due month reset first. It never creates a record: without an
// active subscription it does nothing.
func (s *Service) RecordPost(ctx context.Context, accountID uuid.UUID) error {
	release := s.locks.Lock(accountID)
	defer release()

	return s.recordPost(ctx, accountID)
}

// recordPost expects the caller to hold the account lock.
func (s *Service) recordPost(ctx context.Context, accountID uuid.UUID) error {
	sub, err := s.activeSubscription(ctx, accountID, false)
	if errors.Is(err, common.ErrNotFound) {
		s.logger.Warn("no active subscription to record post against", zap.Stringer("account_id", accountID))
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.resetIfDue(ctx, sub); err != nil {
		return err
	}
	if sub.Unlimited() {
		return nil
	}

	ok, err := s.store.IncrementTweetsPosted(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("increment tweet count: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: all %d tweets used", common.ErrQuotaExceeded, sub.TweetsAllowed)
	}
	return nil
}

// PostWithQuota runs create only when the account may post, then records the
// post. Calls for one account are serialized.
func (s *Service) PostWithQuota(ctx context.Context, accountID uuid.UUID, create func(context.Context) error) error {
	release := s.locks.Lock(accountID)
	defer release()

	sub, err := s.CheckAndMaybeReset(ctx, accountID)
	switch {
	case err == nil:
		if !CanPost(sub) {
			metrics.QuotaDecisions.WithLabelValues("exceeded").Inc()
			return fmt.Errorf("%w: upgrade your subscription to post more tweets", common.ErrQuotaExceeded)
		}
	case errors.Is(err, common.ErrNotFound):
		return err
	case s.failOpen:
		metrics.QuotaDecisions.WithLabelValues("fail_open").Inc()
		s.logger.Warn("subscription check failed, allowing post",
			zap.Stringer("account_id", accountID), zap.Error(err))
	default:
		metrics.QuotaDecisions.WithLabelValues("rejected").Inc()
		return fmt.Errorf("check subscription: %w", err)
	}

	if err := create(ctx); err != nil {
		return err
	}
	metrics.QuotaDecisions.WithLabelValues("allowed").Inc()

	// The content exists at this point; a failed increment is only logged.
	if err := s.recordPost(ctx, accountID); err != nil {
		s.logger.Warn("failed to record post", zap.Stringer("account_id", accountID), zap.Error(err))
	}
	return nil
}

// Allowance reports usage for the quota query endpoint. Store failures are
// returned to the caller.
func (s *Service) Allowance(ctx context.Context, accountID uuid.UUID) (*Allowance, error) {
	sub, err := s.CheckAndMaybeReset(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return NewAllowance(sub), nil
}

// NewAllowance builds the usage view of sub.
func NewAllowance(sub *models.Subscription) *Allowance {
	return &Allowance{
		Plan:            sub.Plan,
		TweetsAllowed:   sub.TweetsAllowed,
		TweetsPosted:    sub.TweetsPosted,
		TweetsRemaining: RemainingTweets(sub),
		CanTweet:        CanPost(sub),
		ValidUntil:      sub.ValidUntil,
	}
}

// Current returns the active subscription, else the latest one of any
// status, else an unsaved free plan.
func (s *Service) Current(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.store.ActiveSubscription(ctx, accountID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	sub, err = s.store.LatestSubscription(ctx, accountID)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	return s.freeSubscription(accountID), nil
}

// Subscribe replaces the account's active plan. Purchases are only accepted
// inside the payment window.
func (s *Service) Subscribe(ctx context.Context, accountID uuid.UUID, tier models.PlanTier) (*models.Subscription, error) {
	now := s.clock.Now()
	if err := window.Require(window.Payment, now); err != nil {
		metrics.WindowRejections.WithLabelValues(string(window.Payment)).Inc()
		return nil, err
	}

	if err := s.ensureAccount(ctx, accountID); err != nil {
		return nil, err
	}

	plan, err := LookupPlan(tier)
	if err != nil {
		return nil, err
	}

	validUntil := now.Add(s.validity)
	sub := &models.Subscription{
		AccountID:     accountID,
		Plan:          plan.Tier,
		Status:        models.SubscriptionActive,
		TweetsAllowed: plan.Tweets,
		TweetsPosted:  0,
		ValidFrom:     now,
		ValidUntil:    &validUntil,
		LastResetAt:   now,
		PaymentRef:    s.newPaymentRef(),
	}

	release := s.locks.Lock(accountID)
	defer release()

	if err := s.store.ReplaceActiveSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("save subscription: %w", err)
	}

	metrics.Subscriptions.WithLabelValues(string(plan.Tier)).Inc()
	s.logger.Info("subscription purchased",
		zap.Stringer("account_id", accountID),
		zap.String("plan", string(plan.Tier)),
		zap.String("payment_ref", sub.PaymentRef))

	return sub, nil
}

func (s *Service) ensureAccount(ctx context.Context, accountID uuid.UUID) error {
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("account %s: %w", accountID, common.ErrNotFound)
		}
		return fmt.Errorf("find account: %w", err)
	}
	return nil
}

func (s *Service) activeSubscription(ctx context.Context, accountID uuid.UUID, create bool) (*models.Subscription, error) {
	sub, err := s.store.ActiveSubscription(ctx, accountID)
	if err == nil {
		return sub, nil
	}
	if !create || !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	sub = s.freeSubscription(accountID)
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return s.store.ActiveSubscription(ctx, accountID)
		}
		return nil, fmt.Errorf("create free subscription: %w", err)
	}
	s.logger.Info("free subscription created", zap.Stringer("account_id", accountID))
	return sub, nil
}

func (s *Service) freeSubscription(accountID uuid.UUID) *models.Subscription {
	now := s.clock.Now()
	plan := catalog[models.PlanFree]
	return &models.Subscription{
		AccountID:     accountID,
		Plan:          plan.Tier,
		Status:        models.SubscriptionActive,
		TweetsAllowed: plan.Tweets,
		TweetsPosted:  0,
		ValidFrom:     now,
		LastResetAt:   now,
	}
}
