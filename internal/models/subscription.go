package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanTier identifies a subscription plan.
type PlanTier string

const (
	PlanFree   PlanTier = "free"
	PlanBronze PlanTier = "bronze"
	PlanSilver PlanTier = "silver"
	PlanGold   PlanTier = "gold"
)

// SubscriptionStatus is the lifecycle state of a subscription record.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionInactive  SubscriptionStatus = "inactive"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// UnlimitedTweets is the TweetsAllowed sentinel for plans without a cap.
const UnlimitedTweets = -1

// Subscription tracks an account's plan and monthly tweet usage. At most one
// record per account is active; the partial unique index enforces it.
type Subscription struct {
	BaseModel
	AccountID     uuid.UUID          `gorm:"type:uuid;not null;index;uniqueIndex:idx_subscriptions_active_account,where:status = 'active'" json:"account_id"`
	Plan          PlanTier           `gorm:"type:varchar(16);not null;default:'free'" json:"plan"`
	Status        SubscriptionStatus `gorm:"type:varchar(16);not null;default:'active'" json:"status"`
	TweetsAllowed int                `gorm:"not null" json:"tweets_allowed"`
	TweetsPosted  int                `gorm:"not null;default:0" json:"tweets_posted"`
	ValidFrom     time.Time          `json:"valid_from"`
	ValidUntil    *time.Time         `json:"valid_until"`
	LastResetAt   time.Time          `json:"last_reset_at"`
	PaymentRef    string             `json:"payment_ref"`
}

// Unlimited reports whether the plan has no tweet cap.
func (s *Subscription) Unlimited() bool {
	return s.TweetsAllowed == UnlimitedTweets
}
