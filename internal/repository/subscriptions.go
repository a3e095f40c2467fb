package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/twiller/internal/models"
)

// SubscriptionRepository stores subscription records in Postgres.
type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) ActiveSubscription(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, models.SubscriptionActive).
		First(&sub).Error
	if err != nil {
		return nil, translate(err, "find active subscription")
	}
	return &sub, nil
}

func (r *SubscriptionRepository) LatestSubscription(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at desc").
		First(&sub).Error
	if err != nil {
		return nil, translate(err, "find subscription")
	}
	return &sub, nil
}

func (r *SubscriptionRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	return translate(r.db.WithContext(ctx).Create(sub).Error, "create subscription")
}

func (r *SubscriptionRepository) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	return translate(r.db.WithContext(ctx).Save(sub).Error, "save subscription")
}

func (r *SubscriptionRepository) IncrementTweetsPosted(ctx context.Context, subscriptionID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND tweets_posted < tweets_allowed", subscriptionID).
		UpdateColumn("tweets_posted", gorm.Expr("tweets_posted + 1"))
	if res.Error != nil {
		return false, translate(res.Error, "increment tweets posted")
	}
	return res.RowsAffected == 1, nil
}

func (r *SubscriptionRepository) ReplaceActiveSubscription(ctx context.Context, sub *models.Subscription) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subscription{}).
			Where("account_id = ? AND status = ?", sub.AccountID, models.SubscriptionActive).
			Update("status", models.SubscriptionCancelled).Error; err != nil {
			return err
		}
		return tx.Create(sub).Error
	})
	return translate(err, "replace subscription")
}
