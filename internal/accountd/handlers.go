package accountd

import (
	"errors"
	"strings"

	"github.com/defi-staking/gateway/internal/account"
	"github.com/defi-staking/gateway/internal/auth"
	"github.com/defi-staking/gateway/internal/linking"
	"github.com/defi-staking/gateway/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	svc       *Service
	jwtSecret string
	log       *zap.Logger
}

func NewHandler(svc *Service, jwtSecret string, log *zap.Logger) *Handler {
	return &Handler{svc: svc, jwtSecret: jwtSecret, log: log}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type authResponse struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

type accountResponse struct {
	Account *models.Account `json:"account"`
}

func (h *Handler) Register(app *fiber.App) {
	api := app.Group("/internal/accounts")

	api.Post("/signup", h.Signup)
	api.Post("/login", h.Login)
	api.Get("/username-available", h.UsernameAvailable)

	authed := api.Group("", h.requireAccount)
	authed.Put("/profile", h.UpdateProfile)
	authed.Post("/link-wallet", h.LinkWallet)
	authed.Get("/me", h.Me)
}

// requireAccount validates the bearer token and stashes the account id.
func (h *Handler) requireAccount(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "missing bearer token"})
	}

	claims, err := auth.ParseJWT(strings.TrimPrefix(header, "Bearer "), h.jwtSecret)
	if err != nil || claims.AccountID == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: "invalid token"})
	}

	c.Locals("accountID", *claims.AccountID)
	return c.Next()
}

func (h *Handler) Signup(c *fiber.Ctx) error {
	var req struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Username string  `json:"username"`
		Bio      *string `json:"bio"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	acct, token, err := h.svc.Signup(c.Context(), req.Email, req.Password, req.Username, req.Bio)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(authResponse{Token: token, Account: acct})
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	acct, token, err := h.svc.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(authResponse{Token: token, Account: acct})
}

func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Username *string `json:"username"`
		Bio      *string `json:"bio"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	acct, err := h.svc.UpdateProfile(c.Context(), c.Locals("accountID").(uuid.UUID), req.Username, req.Bio)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(accountResponse{Account: acct})
}

func (h *Handler) LinkWallet(c *fiber.Ctx) error {
	var proof linking.Proof
	if err := c.BodyParser(&proof); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	if proof.Message == "" || proof.Signature == "" || proof.Address == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "message, signature and address are required"})
	}

	if err := h.svc.LinkWallet(c.Context(), c.Locals("accountID").(uuid.UUID), proof); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) UsernameAvailable(c *fiber.Ctx) error {
	username := c.Query("username")
	if username == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "username is required"})
	}

	available, err := h.svc.UsernameAvailable(c.Context(), username)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"available": available})
}

func (h *Handler) Me(c *fiber.Ctx) error {
	acct, err := h.svc.Account(c.Context(), c.Locals("accountID").(uuid.UUID))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(accountResponse{Account: acct})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, account.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(errorResponse{Error: err.Error(), Code: "email_taken"})
	case errors.Is(err, account.ErrUsernameTaken):
		return c.Status(fiber.StatusConflict).JSON(errorResponse{Error: err.Error(), Code: "username_taken"})
	case errors.Is(err, account.ErrAlreadyLinked):
		return c.Status(fiber.StatusConflict).JSON(errorResponse{Error: err.Error(), Code: "already_linked"})
	case errors.Is(err, account.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{Error: err.Error(), Code: "invalid_credentials"})
	}

	if errors.Is(err, ErrValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	}

	h.log.Error("account operation failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal server error"})
}
