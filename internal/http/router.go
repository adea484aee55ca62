package http

import (
	"time"

	"github.com/defi-staking/gateway/internal/config"
	"github.com/defi-staking/gateway/internal/http/handlers"
	"github.com/defi-staking/gateway/internal/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	walletHandler *handlers.WalletHandler,
	profileHandler *handlers.ProfileHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Redis is optional with the file session store; the limiter only runs
	// when a client is wired.
	if rdb != nil {
		api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))
	}

	// Auth flow (public)
	api.Get("/auth/state", authHandler.GetState)
	api.Post("/auth/wallets/detect", walletHandler.Detect)
	api.Post("/auth/wallet/connect", walletHandler.Connect)
	api.Post("/auth/wallet/handoff", walletHandler.ResolveHandoff)
	api.Post("/auth/continue", authHandler.Continue)
	api.Post("/auth/upgrade", authHandler.Upgrade)
	api.Post("/auth/choose", authHandler.Choose)
	api.Post("/auth/back", authHandler.Back)
	api.Post("/auth/signup", authHandler.Signup)
	api.Post("/auth/login", authHandler.Login)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	protected.Post("/auth/logout", authHandler.Logout)
	protected.Get("/profile", profileHandler.Get)
	protected.Post("/profile/open", profileHandler.Open)
	protected.Post("/profile/close", profileHandler.Close)
	protected.Put("/profile", profileHandler.Update)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
