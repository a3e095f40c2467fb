package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/twiller/internal/clock"
	"github.com/example/twiller/internal/common"
	"github.com/example/twiller/internal/models"
	"github.com/example/twiller/internal/quota"
)

// MaxTweetLength is the longest accepted tweet body, in runes.
const MaxTweetLength = 280

// TweetService creates tweets through the quota gate and serves the feed.
type TweetService struct {
	tweets TweetStore
	quota  *quota.Service
	clock  clock.Clock
	logger *zap.Logger
}

func NewTweetService(tweets TweetStore, quotas *quota.Service, clk clock.Clock, logger *zap.Logger) *TweetService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TweetService{tweets: tweets, quota: quotas, clock: clk, logger: logger.Named("tweets")}
}

// Create posts a text tweet. It fails with common.ErrQuotaExceeded once the
// author's monthly allowance is used up.
func (s *TweetService) Create(ctx context.Context, authorID uuid.UUID, content, image string) (*models.Tweet, error) {
	content = strings.TrimSpace(content)
	if content == "" && image == "" {
		return nil, fmt.Errorf("%w: tweet needs content or an image", common.ErrValidation)
	}
	if utf8.RuneCountInString(content) > MaxTweetLength {
		return nil, fmt.Errorf("%w: tweet exceeds %d characters", common.ErrValidation, MaxTweetLength)
	}

	tweet := &models.Tweet{
		AuthorID: authorID,
		Content:  content,
		Image:    image,
	}
	err := s.quota.PostWithQuota(ctx, authorID, func(ctx context.Context) error {
		tweet.PostedAt = s.clock.Now()
		return s.tweets.CreateTweet(ctx, tweet)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("tweet created", zap.Stringer("tweet_id", tweet.ID), zap.Stringer("author_id", authorID))
	return tweet, nil
}

func (s *TweetService) Get(ctx context.Context, id uuid.UUID) (*models.Tweet, error) {
	return s.tweets.FindTweet(ctx, id)
}

// List returns the newest tweets first.
func (s *TweetService) List(ctx context.Context, limit, offset int) ([]models.Tweet, error) {
	return s.tweets.ListTweets(ctx, limit, offset)
}

func (s *TweetService) Search(ctx context.Context, query string, limit int) ([]models.Tweet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", common.ErrValidation)
	}
	return s.tweets.SearchTweets(ctx, query, limit)
}

// Like counts accountID once per tweet; repeats are no-ops.
func (s *TweetService) Like(ctx context.Context, tweetID, accountID uuid.UUID) (*models.Tweet, error) {
	return s.tweets.AddLike(ctx, tweetID, accountID)
}

// Retweet counts accountID once per tweet; repeats are no-ops.
func (s *TweetService) Retweet(ctx context.Context, tweetID, accountID uuid.UUID) (*models.Tweet, error) {
	return s.tweets.AddRetweet(ctx, tweetID, accountID)
}
