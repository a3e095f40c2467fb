package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/twiller/internal/config"
	"github.com/example/twiller/internal/handlers"
	"github.com/example/twiller/internal/metrics"
	"github.com/example/twiller/internal/middleware"
)

// NewApp builds the fiber application with middleware and all routes.
func NewApp(deps Deps, cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Twiller Backend",
		ErrorHandler: middleware.ErrorHandler(deps.Logger),
		BodyLimit:    1 << 20,
	})

	app.Use(recover.New())
	if !cfg.IsProduction() {
		app.Use(logger.New())
	}
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	Register(app, deps, cfg)
	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps, cfg *config.Config) {
	accountHandler := handlers.NewAccountHandler(deps.Accounts, cfg)
	tweetHandler := handlers.NewTweetHandler(deps.Tweets)
	subscriptionHandler := handlers.NewSubscriptionHandler(deps.Subscriptions)
	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)
	audioHandler := handlers.NewAudioHandler(deps.Audio, cfg.OTPEchoCode)
	languageHandler := handlers.NewLanguageHandler(deps.Languages, cfg.OTPEchoCode)
	loginHandler := handlers.NewLoginHistoryHandler(deps.Logins, cfg.OTPEchoCode)

	auth := middleware.AuthMiddleware(cfg)
	api := app.Group("/api")

	// Account routes
	accounts := api.Group("/accounts")
	accounts.Post("/register", accountHandler.Register)
	accounts.Get("/me", auth, accountHandler.Me)
	accounts.Patch("/me", auth, accountHandler.UpdateProfile)

	// Tweet routes
	tweets := api.Group("/tweets")
	tweets.Get("/", tweetHandler.List)
	tweets.Get("/search", tweetHandler.Search)
	tweets.Get("/:id", tweetHandler.Get)
	tweets.Post("/", auth, tweetHandler.Create)
	tweets.Post("/:id/like", auth, tweetHandler.Like)
	tweets.Post("/:id/retweet", auth, tweetHandler.Retweet)

	// Subscription routes
	subscriptions := api.Group("/subscriptions")
	subscriptions.Get("/plans", subscriptionHandler.Plans)
	subscriptions.Post("/", auth, subscriptionHandler.Subscribe)
	subscriptions.Get("/allowance", auth, subscriptionHandler.Allowance)
	subscriptions.Get("/current", auth, subscriptionHandler.Current)
	subscriptions.Post("/increment", auth, subscriptionHandler.RecordPost)

	// Audio routes
	audio := api.Group("/audio", auth)
	audio.Post("/otp", audioHandler.RequestOTP)
	audio.Post("/upload", audioHandler.Upload)

	// Language routes
	languages := api.Group("/languages")
	languages.Get("/supported", languageHandler.Supported)
	languages.Get("/current", auth, languageHandler.Current)
	languages.Post("/otp", auth, languageHandler.RequestOTP)
	languages.Post("/change", auth, languageHandler.Change)

	// Login history routes
	logins := api.Group("/logins", auth)
	logins.Post("/", loginHandler.Record)
	logins.Get("/", loginHandler.History)
	logins.Post("/verify-otp", loginHandler.VerifyOTP)

	// Notification routes
	notifications := api.Group("/notifications")
	notifications.Post("/check-keywords", notificationHandler.CheckKeywords)
	notifications.Get("/status", auth, notificationHandler.Status)
	notifications.Patch("/toggle", auth, notificationHandler.Toggle)
}
