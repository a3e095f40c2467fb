package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/twiller/internal/clock"
	"github.com/example/twiller/internal/common"
	"github.com/example/twiller/internal/metrics"
	"github.com/example/twiller/internal/models"
	"github.com/example/twiller/internal/otp"
	"github.com/example/twiller/internal/window"
)

const (
	MaxAudioSize     = 100 << 20 // bytes
	MaxAudioDuration = 300.0     // seconds

	audioOTPPurpose = "audio-upload"
)

// AudioUpload is an already stored audio file to publish.
type AudioUpload struct {
	Email    string
	OTP      string
	Content  string
	AudioURL string
	Duration float64
	Size     int64
}

// AudioService publishes audio tweets. Uploads are gated by the audio-post
// window and an emailed passcode.
type AudioService struct {
	accounts AccountStore
	tweets   TweetStore
	otp      *otp.Service
	sender   OTPSender
	clock    clock.Clock
	logger   *zap.Logger
}

func NewAudioService(accounts AccountStore, tweets TweetStore, otps *otp.Service, sender OTPSender, clk clock.Clock, logger *zap.Logger) *AudioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AudioService{
		accounts: accounts,
		tweets:   tweets,
		otp:      otps,
		sender:   sender,
		clock:    clk,
		logger:   logger.Named("audio"),
	}
}

func audioKey(accountID uuid.UUID) string {
	return "audio:" + accountID.String()
}

// RequestOTP emails a passcode for the next upload and returns it.
func (s *AudioService) RequestOTP(ctx context.Context, accountID uuid.UUID) (string, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return "", err
	}

	code, err := s.otp.Issue(ctx, audioKey(accountID), audioOTPPurpose, otp.ChannelEmail)
	if err != nil {
		return "", err
	}
	if err := s.sender.SendOTP(ctx, account.Email, otp.ChannelEmail, audioOTPPurpose, code); err != nil {
		return "", fmt.Errorf("deliver passcode: %w", err)
	}
	return code, nil
}

// Upload publishes an audio tweet. Audio tweets do not count against the
// monthly tweet allowance.
func (s *AudioService) Upload(ctx context.Context, accountID uuid.UUID, in AudioUpload) (*models.Tweet, error) {
	now := s.clock.Now()
	if err := window.Require(window.AudioPost, now); err != nil {
		metrics.WindowRejections.WithLabelValues(string(window.AudioPost)).Inc()
		return nil, err
	}

	if in.Size > MaxAudioSize {
		return nil, fmt.Errorf("%w: audio file exceeds 100MB limit", common.ErrValidation)
	}
	if in.Duration > MaxAudioDuration {
		return nil, fmt.Errorf("%w: audio duration exceeds 5 minutes limit", common.ErrValidation)
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(account.Email, strings.TrimSpace(in.Email)) {
		return nil, fmt.Errorf("%w: email does not match account", common.ErrValidation)
	}

	// The code is spent here; a failed save below needs a fresh code.
	if err := s.otp.VerifyPurpose(ctx, audioKey(accountID), audioOTPPurpose, in.OTP); err != nil {
		return nil, err
	}

	tweet := &models.Tweet{
		AuthorID:      accountID,
		Content:       strings.TrimSpace(in.Content),
		IsAudio:       true,
		AudioURL:      in.AudioURL,
		AudioDuration: in.Duration,
		AudioSize:     in.Size,
		PostedAt:      now,
	}
	if err := s.tweets.CreateTweet(ctx, tweet); err != nil {
		return nil, fmt.Errorf("save audio tweet: %w", err)
	}

	s.logger.Info("audio tweet posted", zap.Stringer("tweet_id", tweet.ID), zap.Stringer("author_id", accountID))
	return tweet, nil
}
