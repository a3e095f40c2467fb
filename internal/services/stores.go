package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/example/twiller/internal/models"
)

// AccountStore is implemented by repository.AccountRepository and
// repository.MemoryStore.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *models.Account) error
	SaveAccount(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*models.Account, error)
	CountNotificationEnabled(ctx context.Context) (int64, error)
}

type TweetStore interface {
	CreateTweet(ctx context.Context, tweet *models.Tweet) error
	FindTweet(ctx context.Context, id uuid.UUID) (*models.Tweet, error)
	ListTweets(ctx context.Context, limit, offset int) ([]models.Tweet, error)
	SearchTweets(ctx context.Context, query string, limit int) ([]models.Tweet, error)
	AddLike(ctx context.Context, tweetID, accountID uuid.UUID) (*models.Tweet, error)
	AddRetweet(ctx context.Context, tweetID, accountID uuid.UUID) (*models.Tweet, error)
}

type LoginStore interface {
	CreateLogin(ctx context.Context, entry *models.LoginHistory) error
	ListLogins(ctx context.Context, accountID uuid.UUID, limit int) ([]models.LoginHistory, error)
	// MarkLatestOTPVerified reports false when no login awaits a passcode.
	MarkLatestOTPVerified(ctx context.Context, accountID uuid.UUID) (bool, error)
}
