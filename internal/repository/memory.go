package repository

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/twiller/internal/common"
	"github.com/example/twiller/internal/models"
)

// MemoryStore keeps every record in process memory. It backs
// STORAGE_BACKEND=memory and the service tests; records are copied in and
// out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]models.Account
	subs     []models.Subscription // insertion order
	tweets   map[uuid.UUID]models.Tweet
	logins   []models.LoginHistory
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[uuid.UUID]models.Account),
		tweets:   make(map[uuid.UUID]models.Tweet),
	}
}

func stamp(b *models.BaseModel) {
	b.EnsureID()
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Accounts

func (m *MemoryStore) CreateAccount(_ context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return fmt.Errorf("create account: %w", common.ErrConflict)
		}
	}
	stamp(&account.BaseModel)
	m.accounts[account.ID] = *account
	return nil
}

func (m *MemoryStore) SaveAccount(_ context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp(&account.BaseModel)
	m.accounts[account.ID] = *account
	return nil
}

func (m *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, fmt.Errorf("find account: %w", common.ErrNotFound)
	}
	return &a, nil
}

func (m *MemoryStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return m.FindByEmailOrPhone(ctx, email, "")
}

func (m *MemoryStore) FindByEmailOrPhone(_ context.Context, email, phone string) (*models.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.accounts {
		if (email != "" && a.Email == email) || (phone != "" && a.Phone == phone) {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("find account: %w", common.ErrNotFound)
}

func (m *MemoryStore) CountNotificationEnabled(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, a := range m.accounts {
		if a.NotificationEnabled {
			n++
		}
	}
	return n, nil
}

// Subscriptions

func (m *MemoryStore) ActiveSubscription(_ context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if i := m.activeIndex(accountID); i >= 0 {
		sub := m.subs[i]
		return &sub, nil
	}
	return nil, fmt.Errorf("find active subscription: %w", common.ErrNotFound)
}

func (m *MemoryStore) LatestSubscription(_ context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.subs) - 1; i >= 0; i-- {
		if m.subs[i].AccountID == accountID {
			sub := m.subs[i]
			return &sub, nil
		}
	}
	return nil, fmt.Errorf("find subscription: %w", common.ErrNotFound)
}

func (m *MemoryStore) CreateSubscription(_ context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sub.Status == models.SubscriptionActive && m.activeIndex(sub.AccountID) >= 0 {
		return fmt.Errorf("create subscription: %w", common.ErrConflict)
	}
	stamp(&sub.BaseModel)
	m.subs = append(m.subs, *sub)
	return nil
}

func (m *MemoryStore) SaveSubscription(_ context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.subs {
		if m.subs[i].ID == sub.ID {
			stamp(&sub.BaseModel)
			m.subs[i] = *sub
			return nil
		}
	}
	return fmt.Errorf("save subscription: %w", common.ErrNotFound)
}

func (m *MemoryStore) IncrementTweetsPosted(_ context.Context, subscriptionID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.subs {
		if m.subs[i].ID != subscriptionID {
			continue
		}
		if m.subs[i].TweetsPosted >= m.subs[i].TweetsAllowed {
			return false, nil
		}
		m.subs[i].TweetsPosted++
		return true, nil
	}
	return false, nil
}

func (m *MemoryStore) ReplaceActiveSubscription(_ context.Context, sub *models.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.subs {
		if m.subs[i].AccountID == sub.AccountID && m.subs[i].Status == models.SubscriptionActive {
			m.subs[i].Status = models.SubscriptionCancelled
		}
	}
	stamp(&sub.BaseModel)
	m.subs = append(m.subs, *sub)
	return nil
}

func (m *MemoryStore) activeIndex(accountID uuid.UUID) int {
	for i := range m.subs {
		if m.subs[i].AccountID == accountID && m.subs[i].Status == models.SubscriptionActive {
			return i
		}
	}
	return -1
}

// Tweets

func (m *MemoryStore) CreateTweet(_ context.Context, tweet *models.Tweet) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp(&tweet.BaseModel)
	stored := *tweet
	stored.Author = nil
	m.tweets[tweet.ID] = stored
	return nil
}

func (m *MemoryStore) FindTweet(_ context.Context, id uuid.UUID) (*models.Tweet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tweets[id]
	if !ok {
		return nil, fmt.Errorf("find tweet: %w", common.ErrNotFound)
	}
	return m.withAuthor(t), nil
}

func (m *MemoryStore) ListTweets(_ context.Context, limit, offset int) ([]models.Tweet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedTweets(func(models.Tweet) bool { return true }, limit, offset), nil
}

func (m *MemoryStore) SearchTweets(_ context.Context, query string, limit int) ([]models.Tweet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)
	return m.sortedTweets(func(t models.Tweet) bool {
		return strings.Contains(strings.ToLower(t.Content), needle)
	}, limit, 0), nil
}

func (m *MemoryStore) AddLike(_ context.Context, tweetID, accountID uuid.UUID) (*models.Tweet, error) {
	return m.react(tweetID, accountID, func(t *models.Tweet, who string) {
		if !slices.Contains(t.LikedBy, who) {
			t.Likes++
			t.LikedBy = append(slices.Clone(t.LikedBy), who)
		}
	})
}

func (m *MemoryStore) AddRetweet(_ context.Context, tweetID, accountID uuid.UUID) (*models.Tweet, error) {
	return m.react(tweetID, accountID, func(t *models.Tweet, who string) {
		if !slices.Contains(t.RetweetedBy, who) {
			t.Retweets++
			t.RetweetedBy = append(slices.Clone(t.RetweetedBy), who)
		}
	})
}

func (m *MemoryStore) react(tweetID, accountID uuid.UUID, apply func(*models.Tweet, string)) (*models.Tweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tweets[tweetID]
	if !ok {
		return nil, fmt.Errorf("find tweet: %w", common.ErrNotFound)
	}
	apply(&t, accountID.String())
	m.tweets[tweetID] = t
	return m.withAuthor(t), nil
}

func (m *MemoryStore) sortedTweets(keep func(models.Tweet) bool, limit, offset int) []models.Tweet {
	out := make([]models.Tweet, 0, len(m.tweets))
	for _, t := range m.tweets {
		if keep(t) {
			out = append(out, *m.withAuthor(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PostedAt.After(out[j].PostedAt)
	})

	if offset >= len(out) {
		return []models.Tweet{}
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (m *MemoryStore) withAuthor(t models.Tweet) *models.Tweet {
	t.LikedBy = slices.Clone(t.LikedBy)
	t.RetweetedBy = slices.Clone(t.RetweetedBy)
	if a, ok := m.accounts[t.AuthorID]; ok {
		t.Author = &a
	}
	return &t
}

// Login history

func (m *MemoryStore) CreateLogin(_ context.Context, entry *models.LoginHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp(&entry.BaseModel)
	m.logins = append(m.logins, *entry)
	return nil
}

func (m *MemoryStore) ListLogins(_ context.Context, accountID uuid.UUID, limit int) ([]models.LoginHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.LoginHistory
	for _, e := range m.logins {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LoginAt.After(out[j].LoginAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) MarkLatestOTPVerified(_ context.Context, accountID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	latest := -1
	for i, e := range m.logins {
		if e.AccountID != accountID || !e.RequiresOTP || e.OTPVerified {
			continue
		}
		if latest < 0 || !e.LoginAt.Before(m.logins[latest].LoginAt) {
			latest = i
		}
	}
	if latest < 0 {
		return false, nil
	}
	m.logins[latest].OTPVerified = true
	return true, nil
}
