package middleware

import (
	"strings"

	"github.com/defi-staking/gateway/internal/auth"
	"github.com/defi-staking/gateway/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CtxAccountID = "account_id"
	CtxAddress   = "address"
	CtxMethod    = "auth_method"
)

func AuthMiddleware(cfg *config.Config, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(tokenStr, cfg.JWTSecret)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		if claims.AccountID != nil {
			c.Locals(CtxAccountID, *claims.AccountID)
		}
		c.Locals(CtxAddress, claims.Address)
		c.Locals(CtxMethod, claims.Method)

		return c.Next()
	}
}

func GetAccountID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(CtxAccountID).(uuid.UUID)
	return id
}

func GetAddress(c *fiber.Ctx) string {
	addr, _ := c.Locals(CtxAddress).(string)
	return addr
}
