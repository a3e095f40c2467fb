package services

import (
	"context"
	"fmt"

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
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100

	loginOTPPurpose = "login"
)

// LoginResult is the outcome of a recorded login.
type LoginResult struct {
	Entry       *models.LoginHistory
	RequiresOTP bool
	Code        string
}

// LoginService tracks logins and applies the device policies: mobile
// logins only inside the mobile-login window, Chrome logins behind an
// emailed passcode.
type LoginService struct {
	accounts AccountStore
	logins   LoginStore
	otp      *otp.Service
	sender   OTPSender
	clock    clock.Clock
	logger   *zap.Logger
}

func NewLoginService(accounts AccountStore, logins LoginStore, otps *otp.Service, sender OTPSender, clk clock.Clock, logger *zap.Logger) *LoginService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginService{
		accounts: accounts,
		logins:   logins,
		otp:      otps,
		sender:   sender,
		clock:    clk,
		logger:   logger.Named("logins"),
	}
}

func loginKey(accountID uuid.UUID) string {
	return "login:" + accountID.String()
}

// RequiresOTP reports whether logins from browser need a passcode.
func RequiresOTP(browser string) bool {
	return browser == "Chrome"
}

// Record stores a login attempt. A rejected mobile login is stored as failed
// and returns common.ErrOutsideWindow.
func (s *LoginService) Record(ctx context.Context, accountID uuid.UUID, ip, userAgent string) (*LoginResult, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	ua := ParseUserAgent(userAgent)
	entry := &models.LoginHistory{
		AccountID:  accountID,
		IPAddress:  ip,
		UserAgent:  userAgent,
		Browser:    ua.Browser,
		OS:         ua.OS,
		DeviceType: ua.DeviceType,
		Location:   unknown,
		LoginAt:    now,
	}

	if ua.DeviceType == models.DeviceMobile {
		if err := window.Require(window.MobileLogin, now); err != nil {
			metrics.WindowRejections.WithLabelValues(string(window.MobileLogin)).Inc()
			if saveErr := s.logins.CreateLogin(ctx, entry); saveErr != nil {
				s.logger.Warn("failed to record rejected login", zap.Stringer("account_id", accountID), zap.Error(saveErr))
			}
			return nil, fmt.Errorf("mobile login: %w", err)
		}
	}

	needsOTP := RequiresOTP(ua.Browser)
	entry.Success = true
	entry.RequiresOTP = needsOTP
	entry.OTPVerified = !needsOTP
	if err := s.logins.CreateLogin(ctx, entry); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	result := &LoginResult{Entry: entry, RequiresOTP: needsOTP}
	if needsOTP {
		code, err := s.otp.Issue(ctx, loginKey(accountID), loginOTPPurpose, otp.ChannelEmail)
		if err != nil {
			return nil, err
		}
		if err := s.sender.SendOTP(ctx, account.Email, otp.ChannelEmail, loginOTPPurpose, code); err != nil {
			return nil, fmt.Errorf("deliver passcode: %w", err)
		}
		result.Code = code
	}

	return result, nil
}

// History returns the newest logins first.
func (s *LoginService) History(ctx context.Context, accountID uuid.UUID, limit int) ([]models.LoginHistory, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)
	return s.logins.ListLogins(ctx, accountID, limit)
}

// VerifyOTP checks the login passcode and marks the latest pending login as
// verified.
func (s *LoginService) VerifyOTP(ctx context.Context, accountID uuid.UUID, code string) error {
	if err := s.otp.VerifyPurpose(ctx, loginKey(accountID), loginOTPPurpose, code); err != nil {
		return err
	}

	ok, err := s.logins.MarkLatestOTPVerified(ctx, accountID)
	if err != nil {
		return fmt.Errorf("mark login verified: %w", err)
	}
	if !ok {
		return fmt.Errorf("no login awaiting verification: %w", common.ErrNotFound)
	}
	return nil
}
