package handlers

import (
	"errors"

	"github.com/defi-staking/gateway/internal/account"
	"github.com/defi-staking/gateway/internal/auth"
	"github.com/defi-staking/gateway/internal/authflow"
	"github.com/defi-staking/gateway/internal/config"
	"github.com/defi-staking/gateway/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthHandler struct {
	ctrl    *authflow.Controller
	backend account.Backend
	cfg     *config.Config
	log     *zap.Logger
}

func NewAuthHandler(ctrl *authflow.Controller, backend account.Backend, cfg *config.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{ctrl: ctrl, backend: backend, cfg: cfg, log: log}
}

func (h *AuthHandler) GetState(c *fiber.Ctx) error {
	return c.JSON(dto.StateResponse{Snapshot: h.ctrl.Snapshot()})
}

// Continue moves from wallet selection to the account options step.
func (h *AuthHandler) Continue(c *fiber.Ctx) error {
	snap, err := h.ctrl.ContinueToAccount()
	if err != nil {
		return h.fail(c, snap, err)
	}
	return c.JSON(dto.StateResponse{Snapshot: snap})
}

// Upgrade starts attaching an account to a wallet-only session.
func (h *AuthHandler) Upgrade(c *fiber.Ctx) error {
	snap, err := h.ctrl.UpgradeAccount()
	if err != nil {
		return h.fail(c, snap, err)
	}
	return c.JSON(dto.StateResponse{Snapshot: snap})
}

func (h *AuthHandler) Choose(c *fiber.Ctx) error {
	var req dto.ChooseRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	var snap authflow.Snapshot
	var err error
	switch req.Flow {
	case "signup":
		snap, err = h.ctrl.ChooseSignup()
	case "login":
		snap, err = h.ctrl.ChooseLogin()
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "flow must be signup or login"})
	}
	if err != nil {
		return h.fail(c, snap, err)
	}
	return c.JSON(dto.StateResponse{Snapshot: snap})
}

func (h *AuthHandler) Back(c *fiber.Ctx) error {
	snap, err := h.ctrl.Back()
	if err != nil {
		return h.fail(c, snap, err)
	}
	return c.JSON(dto.StateResponse{Snapshot: snap})
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	snap, err := h.ctrl.Signup(c.Context(), req.Email, req.Password, req.Username, req.Bio)
	if err != nil {
		return h.fail(c, snap, err)
	}
	return h.respondAuthenticated(c, snap)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	snap, err := h.ctrl.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		return h.fail(c, snap, err)
	}
	return h.respondAuthenticated(c, snap)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	snap, err := h.ctrl.Logout(c.Context())
	if err != nil {
		return h.fail(c, snap, err)
	}
	return c.JSON(dto.StateResponse{Snapshot: snap})
}

// respondAuthenticated attaches a gateway token when the flow landed in an
// authenticated session.
func (h *AuthHandler) respondAuthenticated(c *fiber.Ctx, snap authflow.Snapshot) error {
	resp := dto.StateResponse{Snapshot: snap}

	if snap.Session != nil && snap.Session.IsAuthenticated {
		var accountID *uuid.UUID
		if acct := h.backend.CurrentAccount(); acct != nil {
			id := acct.ID
			accountID = &id
		}
		token, err := auth.GenerateJWT(accountID, snap.Session.Address, snap.Session.AuthMethod, h.cfg.JWTSecret, h.cfg.JWTExpiration)
		if err != nil {
			h.log.Error("failed to generate jwt", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
		}
		resp.Token = token
	}
	return c.JSON(resp)
}

func (h *AuthHandler) fail(c *fiber.Ctx, snap authflow.Snapshot, err error) error {
	return failAuthflow(c, h.log, snap, err)
}

// failAuthflow maps controller errors to HTTP statuses. Shared by the auth
// and wallet handlers.
func failAuthflow(c *fiber.Ctx, log *zap.Logger, snap authflow.Snapshot, err error) error {
	switch {
	case errors.Is(err, authflow.ErrBusy):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error(), Code: "busy"})
	case errors.Is(err, authflow.ErrBadState):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error(), Code: "bad_state"})
	case errors.Is(err, authflow.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, authflow.ErrComingSoon):
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Error: err.Error(), Code: "coming_soon"})
	case errors.Is(err, account.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: err.Error(), Code: "invalid_credentials"})
	case errors.Is(err, account.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error(), Code: "email_taken"})
	case errors.Is(err, account.ErrUsernameTaken):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error(), Code: "username_taken"})
	case errors.Is(err, account.ErrAlreadyLinked):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error(), Code: "already_linked"})
	case errors.Is(err, account.ErrUnavailable):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: err.Error(), Code: "backend_unavailable"})
	}

	log.Error("auth flow operation failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
}
