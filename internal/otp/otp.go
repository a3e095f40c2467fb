// Package otp issues and verifies six-digit one-time passcodes.
//
// A challenge is keyed by an account-scoped string, bound to a purpose and
// stored only as a bcrypt hash. Issuing a new challenge for a key replaces
// the previous one.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/twiller/internal/clock"
	"github.com/example/twiller/internal/common"
	"github.com/example/twiller/internal/metrics"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = 10 * time.Minute

const codeSpace = 1000000

// Channel is where a code is delivered.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelPhone Channel = "phone"
)

// Challenge is an outstanding passcode.
type Challenge struct {
	CodeHash  string    `json:"code_hash"`
	Purpose   string    `json:"purpose"`
	Channel   Channel   `json:"channel"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store keeps challenges by key.
type Store interface {
	Save(ctx context.Context, key string, ch Challenge) error
	// Load returns common.ErrNotFound when no challenge exists for key.
	Load(ctx context.Context, key string) (Challenge, error)
	// Consume removes the challenge for key only while it still carries
	// codeHash, and reports whether this call removed it.
	Consume(ctx context.Context, key, codeHash string) (bool, error)
}

type Options struct {
	TTL time.Duration
	// Rand defaults to crypto/rand.
	Rand     io.Reader
	HashCost int
}

type Service struct {
	store    Store
	clock    clock.Clock
	logger   *zap.Logger
	ttl      time.Duration
	rand     io.Reader
	hashCost int
}

func NewService(store Store, clk clock.Clock, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Rand == nil {
		opts.Rand = rand.Reader
	}
	if opts.HashCost < bcrypt.MinCost || opts.HashCost > bcrypt.MaxCost {
		opts.HashCost = bcrypt.DefaultCost
	}
	return &Service{
		store:    store,
		clock:    clk,
		logger:   logger.Named("otp"),
		ttl:      opts.TTL,
		rand:     opts.Rand,
		hashCost: opts.HashCost,
	}
}

// TTL reports how long issued codes stay valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue generates a code for key and stores its challenge. The plaintext code
// is returned for delivery and never persisted.
func (s *Service) Issue(ctx context.Context, key, purpose string, channel Channel) (string, error) {
	code, err := s.generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}

	ch := Challenge{
		CodeHash:  string(hash),
		Purpose:   purpose,
		Channel:   channel,
		ExpiresAt: s.clock.Now().Add(s.ttl),
	}
	if err := s.store.Save(ctx, key, ch); err != nil {
		return "", fmt.Errorf("save challenge: %w", err)
	}

	metrics.OTPEvents.WithLabelValues("issued").Inc()
	s.logger.Debug("otp issued", zap.String("key", key), zap.String("purpose", purpose))
	return code, nil
}

// Verify checks code against the challenge stored for key. A wrong code
// leaves the challenge in place; success and expiry remove it.
func (s *Service) Verify(ctx context.Context, key, code string) error {
	return s.verify(ctx, key, "", code)
}

// VerifyPurpose is Verify restricted to challenges issued for purpose. A
// challenge for another purpose counts as a mismatch.
func (s *Service) VerifyPurpose(ctx context.Context, key, purpose, code string) error {
	return s.verify(ctx, key, purpose, code)
}

func (s *Service) verify(ctx context.Context, key, purpose, code string) error {
	ch, err := s.store.Load(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			metrics.OTPEvents.WithLabelValues("not_found").Inc()
			return fmt.Errorf("no otp requested: %w", common.ErrNotFound)
		}
		return fmt.Errorf("load challenge: %w", err)
	}

	if s.clock.Now().After(ch.ExpiresAt) {
		if _, err := s.store.Consume(ctx, key, ch.CodeHash); err != nil {
			s.logger.Warn("failed to delete expired challenge", zap.String("key", key), zap.Error(err))
		}
		metrics.OTPEvents.WithLabelValues("expired").Inc()
		return common.ErrOTPExpired
	}

	if purpose != "" && ch.Purpose != purpose {
		metrics.OTPEvents.WithLabelValues("mismatch").Inc()
		return common.ErrOTPMismatch
	}
	if bcrypt.CompareHashAndPassword([]byte(ch.CodeHash), []byte(code)) != nil {
		metrics.OTPEvents.WithLabelValues("mismatch").Inc()
		return common.ErrOTPMismatch
	}

	consumed, err := s.store.Consume(ctx, key, ch.CodeHash)
	if err != nil {
		return fmt.Errorf("consume challenge: %w", err)
	}
	if !consumed {
		// Another request used or replaced the challenge after it was loaded.
		metrics.OTPEvents.WithLabelValues("not_found").Inc()
		return fmt.Errorf("otp already used: %w", common.ErrNotFound)
	}
	metrics.OTPEvents.WithLabelValues("verified").Inc()
	return nil
}

func (s *Service) generateCode() (string, error) {
	n, err := rand.Int(s.rand, big.NewInt(codeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
