package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/twiller/internal/common"
	"github.com/example/twiller/internal/models"
	"github.com/example/twiller/internal/otp"
)

// Language is a supported interface language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

var supportedLanguages = []Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "hi", Name: "Hindi"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "zh", Name: "Chinese"},
	{Code: "fr", Name: "French"},
}

// emailVerifiedLanguage is verified over email; every other language
// goes through the phone.
const emailVerifiedLanguage = "fr"

// SupportedLanguages returns the language catalog.
func SupportedLanguages() []Language {
	return append([]Language(nil), supportedLanguages...)
}

// LookupLanguage returns the catalog entry for code.
func LookupLanguage(code string) (Language, bool) {
	for _, l := range supportedLanguages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// LanguageChannel picks the passcode channel for switching to code.
func LanguageChannel(code string) otp.Channel {
	if code == emailVerifiedLanguage {
		return otp.ChannelEmail
	}
	return otp.ChannelPhone
}

// LanguageChallenge describes an issued language-change passcode.
type LanguageChallenge struct {
	Language Language    `json:"language"`
	Channel  otp.Channel `json:"method"`
	Code     string      `json:"-"`
}

type LanguageService struct {
	accounts AccountStore
	otp      *otp.Service
	sender   OTPSender
	logger   *zap.Logger
}

func NewLanguageService(accounts AccountStore, otps *otp.Service, sender OTPSender, logger *zap.Logger) *LanguageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LanguageService{accounts: accounts, otp: otps, sender: sender, logger: logger.Named("language")}
}

func languageKey(accountID uuid.UUID) string {
	return "language:" + accountID.String()
}

func languagePurpose(code string) string {
	return "language:" + code
}

// RequestChange sends a passcode for switching the account to code. The
// passcode only unlocks that language.
func (s *LanguageService) RequestChange(ctx context.Context, accountID uuid.UUID, code string) (*LanguageChallenge, error) {
	lang, ok := LookupLanguage(code)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported language %q", common.ErrValidation, code)
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	channel := LanguageChannel(code)
	recipient := account.Email
	if channel == otp.ChannelPhone {
		if account.Phone == "" {
			return nil, fmt.Errorf("%w: %s requires phone verification, add a phone number first", common.ErrValidation, lang.Name)
		}
		recipient = account.Phone
	}

	pass, err := s.otp.Issue(ctx, languageKey(accountID), languagePurpose(code), channel)
	if err != nil {
		return nil, err
	}
	if err := s.sender.SendOTP(ctx, recipient, channel, languagePurpose(code), pass); err != nil {
		return nil, fmt.Errorf("deliver passcode: %w", err)
	}

	return &LanguageChallenge{Language: lang, Channel: channel, Code: pass}, nil
}

// Change verifies the passcode and switches the account language.
func (s *LanguageService) Change(ctx context.Context, accountID uuid.UUID, code, pass string) (*models.Account, error) {
	if _, ok := LookupLanguage(code); !ok {
		return nil, fmt.Errorf("%w: unsupported language %q", common.ErrValidation, code)
	}

	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := s.otp.VerifyPurpose(ctx, languageKey(accountID), languagePurpose(code), pass); err != nil {
		return nil, err
	}

	account.Language = code
	if err := s.accounts.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("save language: %w", err)
	}

	s.logger.Info("language changed", zap.Stringer("account_id", accountID), zap.String("language", code))
	return account, nil
}

// Current returns the account language, defaulting to English.
func (s *LanguageService) Current(ctx context.Context, accountID uuid.UUID) (string, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if account.Language == "" {
		return DefaultLanguage, nil
	}
	return account.Language, nil
}
