package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/defi-staking/gateway/internal/account"
	"github.com/defi-staking/gateway/internal/authflow"
	"github.com/defi-staking/gateway/internal/config"
	"github.com/defi-staking/gateway/internal/db"
	"github.com/defi-staking/gateway/internal/events"
	apphttp "github.com/defi-staking/gateway/internal/http"
	"github.com/defi-staking/gateway/internal/http/handlers"
	"github.com/defi-staking/gateway/internal/linking"
	"github.com/defi-staking/gateway/internal/session"
	"github.com/defi-staking/gateway/internal/wallet"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session store + optional redis
	var rdb *redis.Client
	var store session.Store
	if cfg.SessionStore == "redis" {
		var err error
		rdb, err = db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb, cfg.SessionTTL, log)
	} else {
		path := session.DefaultPath(cfg.SessionFile)
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			log.Fatal("failed to create session dir", zap.Error(err))
		}
		store = session.NewFileStore(path, log)
	}

	// Events
	var bus events.Bus
	if rdb != nil {
		bus = events.NewRedisBus(rdb, log)
	} else {
		bus = events.NewMemoryBus(log)
	}

	// Collaborators
	backend := account.NewClient(cfg.AccountBackendURL, log)
	dialer := wallet.NewDialer(cfg.BridgeURLs, log)
	verifier := authflow.NewVerifier(dialer, log)
	linker := linking.NewLinker(log)

	ctrl := authflow.NewController(cfg, store, backend, dialer, verifier, linker, bus, log)
	defer ctrl.Close()

	// Handlers
	authHandler := handlers.NewAuthHandler(ctrl, backend, cfg, log)
	walletHandler := handlers.NewWalletHandler(ctrl, log)
	profileHandler := handlers.NewProfileHandler(ctrl, backend, log)
	wsHub := handlers.NewWSHub(cfg, bus, log)

	wsHub.Start(ctx)

	// Decide the startup state before accepting traffic.
	restoreCtx, restoreCancel := context.WithTimeout(ctx, 15*time.Second)
	snap, err := ctrl.Restore(restoreCtx)
	restoreCancel()
	if err != nil {
		log.Warn("session restore failed", zap.Error(err))
	}
	log.Info("auth flow ready", zap.String("state", string(snap.State)))

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, walletHandler, profileHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.GatewayPort)
	log.Info("starting session gateway", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
