package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/example/twiller/internal/models"
)

// KeywordAlert reports which watched keywords a tweet mentions.
type KeywordAlert struct {
	Notify        bool     `json:"notification"`
	Keywords      []string `json:"keywords,omitempty"`
	Content       string   `json:"content,omitempty"`
	Author        string   `json:"author,omitempty"`
	UsersNotified int64    `json:"users_notified"`
}

// NotificationService owns notification preferences and keyword alerts.
type NotificationService struct {
	accounts AccountStore
	tweets   TweetStore
	keywords []string
}

func NewNotificationService(accounts AccountStore, tweets TweetStore, keywords []string) *NotificationService {
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &NotificationService{accounts: accounts, tweets: tweets, keywords: lowered}
}

func (s *NotificationService) SetEnabled(ctx context.Context, accountID uuid.UUID, enabled bool) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	account.NotificationEnabled = enabled
	if err := s.accounts.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("save notification preference: %w", err)
	}
	return account, nil
}

func (s *NotificationService) Status(ctx context.Context, accountID uuid.UUID) (bool, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	return account.NotificationEnabled, nil
}

// MatchKeywords returns the watched keywords found in content, ignoring case.
func (s *NotificationService) MatchKeywords(content string) []string {
	content = strings.ToLower(content)
	var found []string
	for _, k := range s.keywords {
		if strings.Contains(content, k) {
			found = append(found, k)
		}
	}
	return found
}

// CheckKeywords inspects a stored tweet and counts the accounts that would
// be alerted.
func (s *NotificationService) CheckKeywords(ctx context.Context, tweetID uuid.UUID) (*KeywordAlert, error) {
	tweet, err := s.tweets.FindTweet(ctx, tweetID)
	if err != nil {
		return nil, err
	}

	found := s.MatchKeywords(tweet.Content)
	if len(found) == 0 {
		return &KeywordAlert{}, nil
	}

	count, err := s.accounts.CountNotificationEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("count subscribers: %w", err)
	}

	alert := &KeywordAlert{
		Notify:        true,
		Keywords:      found,
		Content:       tweet.Content,
		UsersNotified: count,
	}
	if tweet.Author != nil {
		alert.Author = tweet.Author.DisplayName
	}
	return alert, nil
}
