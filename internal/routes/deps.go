package routes

import (
	"go.uber.org/zap"

	"github.com/example/twiller/internal/clock"
	"github.com/example/twiller/internal/config"
	"github.com/example/twiller/internal/otp"
	"github.com/example/twiller/internal/quota"
	"github.com/example/twiller/internal/services"
)

// Stores groups the persistence backends.
type Stores struct {
	Accounts      services.AccountStore
	Subscriptions quota.Store
	Tweets        services.TweetStore
	Logins        services.LoginStore
	OTP           otp.Store
}

// Deps holds the services behind the HTTP handlers.
type Deps struct {
	Accounts      *services.AccountService
	Tweets        *services.TweetService
	Subscriptions *services.SubscriptionService
	Notifications *services.NotificationService
	Audio         *services.AudioService
	Languages     *services.LanguageService
	Logins        *services.LoginService
	Logger        *zap.Logger
}

// NewDeps builds every service on top of st.
func NewDeps(cfg *config.Config, st Stores, clk clock.Clock, logger *zap.Logger) Deps {
	quotas := quota.NewService(st.Subscriptions, st.Accounts, clk, logger, quota.Options{
		FailOpen: cfg.QuotaFailOpen,
	})
	otps := otp.NewService(st.OTP, clk, logger, otp.Options{
		TTL:      cfg.OTPTTL,
		HashCost: cfg.OTPHashCost,
	})
	sender := services.NewLogSender(logger, !cfg.IsProduction())
	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, logger)

	return Deps{
		Accounts:      services.NewAccountService(st.Accounts, quotas, logger),
		Tweets:        services.NewTweetService(st.Tweets, quotas, clk, logger),
		Subscriptions: services.NewSubscriptionService(quotas, st.Accounts, telegram, logger),
		Notifications: services.NewNotificationService(st.Accounts, st.Tweets, cfg.NotifyKeywords),
		Audio:         services.NewAudioService(st.Accounts, st.Tweets, otps, sender, clk, logger),
		Languages:     services.NewLanguageService(st.Accounts, otps, sender, logger),
		Logins:        services.NewLoginService(st.Accounts, st.Logins, otps, sender, clk, logger),
		Logger:        logger,
	}
}
