package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/twiller/internal/models"
	"github.com/example/twiller/internal/services"
	"github.com/example/twiller/internal/utils"
)

// TweetHandler serves the feed.
type TweetHandler struct {
	tweets *services.TweetService
}

// NewTweetHandler constructs TweetHandler.
func NewTweetHandler(tweets *services.TweetService) *TweetHandler {
	return &TweetHandler{tweets: tweets}
}

type createTweetRequest struct {
	Content string `json:"content"`
	Image   string `json:"image" validate:"omitempty,url"`
}

// Create posts a tweet for the authenticated account.
func (h *TweetHandler) Create(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req createTweetRequest
	if err := utils.BindJSON(c, &req); err != nil {
		return err
	}

	tweet, err := h.tweets.Create(c.UserContext(), accountID, req.Content, req.Image)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": tweet})
}

// List returns a page of the newest tweets.
func (h *TweetHandler) List(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	tweets, err := h.tweets.List(c.UserContext(), p.Limit, p.Offset)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    tweets,
		"page":    p.Page,
		"limit":   p.Limit,
	})
}

// Search finds tweets containing the q query parameter.
func (h *TweetHandler) Search(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	tweets, err := h.tweets.Search(c.UserContext(), c.Query("q"), p.Limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": tweets})
}

func (h *TweetHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	tweet, err := h.tweets.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": tweet})
}

func (h *TweetHandler) Like(c *fiber.Ctx) error {
	return h.react(c, h.tweets.Like)
}

func (h *TweetHandler) Retweet(c *fiber.Ctx) error {
	return h.react(c, h.tweets.Retweet)
}

func (h *TweetHandler) react(c *fiber.Ctx, apply func(ctx context.Context, tweetID, accountID uuid.UUID) (*models.Tweet, error)) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}
	tweetID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	tweet, err := apply(c.UserContext(), tweetID, accountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": tweet})
}
