package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/twiller/internal/models"
)

// TweetRepository stores tweets in Postgres.
type TweetRepository struct {
	db *gorm.DB
}

func NewTweetRepository(db *gorm.DB) *TweetRepository {
	return &TweetRepository{db: db}
}

func (r *TweetRepository) CreateTweet(ctx context.Context, tweet *models.Tweet) error {
	return translate(r.db.WithContext(ctx).Create(tweet).Error, "create tweet")
}

func (r *TweetRepository) FindTweet(ctx context.Context, id uuid.UUID) (*models.Tweet, error) {
	var tweet models.Tweet
	if err := r.db.WithContext(ctx).Preload("Author").First(&tweet, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find tweet")
	}
	return &tweet, nil
}

func (r *TweetRepository) ListTweets(ctx context.Context, limit, offset int) ([]models.Tweet, error) {
	var tweets []models.Tweet
	err := r.db.WithContext(ctx).
		Preload("Author").
		Order("posted_at desc").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error
	return tweets, translate(err, "list tweets")
}

func (r *TweetRepository) SearchTweets(ctx context.Context, query string, limit int) ([]models.Tweet, error) {
	var tweets []models.Tweet
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("content ILIKE ? ESCAPE '\\'", "%"+escapeLike(query)+"%").
		Order("posted_at desc").
		Limit(limit).
		Find(&tweets).Error
	return tweets, translate(err, "search tweets")
}

func (r *TweetRepository) AddLike(ctx context.Context, tweetID, accountID uuid.UUID) (*models.Tweet, error) {
	return r.appendReaction(ctx, tweetID, accountID, "likes", "liked_by")
}

func (r *TweetRepository) AddRetweet(ctx context.Context, tweetID, accountID uuid.UUID) (*models.Tweet, error) {
	return r.appendReaction(ctx, tweetID, accountID, "retweets", "retweeted_by")
}

// appendReaction bumps counter and appends the account to list unless it is
// already there, in a single statement.
func (r *TweetRepository) appendReaction(ctx context.Context, tweetID, accountID uuid.UUID, counter, list string) (*models.Tweet, error) {
	if _, err := r.FindTweet(ctx, tweetID); err != nil {
		return nil, err
	}

	who := accountID.String()
	err := r.db.WithContext(ctx).
		Model(&models.Tweet{}).
		Where("id = ? AND NOT (? = ANY(COALESCE("+list+", '{}'::text[])))", tweetID, who).
		UpdateColumns(map[string]any{
			counter: gorm.Expr(counter + " + 1"),
			list:    gorm.Expr("array_append("+list+", ?)", who),
		}).Error
	if err != nil {
		return nil, translate(err, "update tweet "+counter)
	}

	return r.FindTweet(ctx, tweetID)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
