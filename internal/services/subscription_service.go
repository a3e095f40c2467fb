package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/twiller/internal/models"
	"github.com/example/twiller/internal/quota"
)

// SubscriptionNotifier receives completed purchases.
type SubscriptionNotifier interface {
	NotifySubscription(ctx context.Context, n SubscriptionNotification) error
}

// SubscriptionService sells plans and reports usage.
type SubscriptionService struct {
	quota    *quota.Service
	accounts AccountStore
	notifier SubscriptionNotifier
	logger   *zap.Logger
}

func NewSubscriptionService(quotas *quota.Service, accounts AccountStore, notifier SubscriptionNotifier, logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{quota: quotas, accounts: accounts, notifier: notifier, logger: logger.Named("subscriptions")}
}

func (s *SubscriptionService) Plans() []quota.Plan {
	return quota.Plans()
}

// Subscribe buys tier for the account and notifies operators. Notification
// failures do not undo the purchase.
func (s *SubscriptionService) Subscribe(ctx context.Context, accountID uuid.UUID, tier models.PlanTier) (*models.Subscription, error) {
	sub, err := s.quota.Subscribe(ctx, accountID, tier)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notify(ctx, accountID, sub)
	}
	return sub, nil
}

func (s *SubscriptionService) notify(ctx context.Context, accountID uuid.UUID, sub *models.Subscription) {
	plan, err := quota.LookupPlan(sub.Plan)
	if err != nil {
		return
	}

	n := SubscriptionNotification{
		Plan:       plan.Name,
		Price:      plan.Price,
		Currency:   quota.Currency,
		PaymentRef: sub.PaymentRef,
	}
	if sub.ValidUntil != nil {
		n.ValidUntil = *sub.ValidUntil
	}
	if account, err := s.accounts.FindByID(ctx, accountID); err == nil {
		n.AccountEmail = account.Email
	}

	if err := s.notifier.NotifySubscription(ctx, n); err != nil {
		s.logger.Warn("failed to send subscription notification",
			zap.String("payment_ref", sub.PaymentRef), zap.Error(err))
	}
}

// Allowance is the fail-closed usage query.
func (s *SubscriptionService) Allowance(ctx context.Context, accountID uuid.UUID) (*quota.Allowance, error) {
	return s.quota.Allowance(ctx, accountID)
}

func (s *SubscriptionService) Current(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	return s.quota.Current(ctx, accountID)
}

// RecordPost counts a tweet created outside TweetService.
func (s *SubscriptionService) RecordPost(ctx context.Context, accountID uuid.UUID) (*quota.Allowance, error) {
	if err := s.quota.RecordPost(ctx, accountID); err != nil {
		return nil, err
	}
	return s.quota.Allowance(ctx, accountID)
}
