package handlers

import (
	"github.com/defi-staking/gateway/internal/account"
	"github.com/defi-staking/gateway/internal/authflow"
	"github.com/defi-staking/gateway/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ProfileHandler struct {
	ctrl    *authflow.Controller
	backend account.Backend
	log     *zap.Logger
}

func NewProfileHandler(ctrl *authflow.Controller, backend account.Backend, log *zap.Logger) *ProfileHandler {
	return &ProfileHandler{ctrl: ctrl, backend: backend, log: log}
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	return c.JSON(dto.ProfileResponse{Account: h.backend.CurrentAccount()})
}

// Open enters the profile screen.
func (h *ProfileHandler) Open(c *fiber.Ctx) error {
	snap, err := h.ctrl.OpenProfile()
	if err != nil {
		return failAuthflow(c, h.log, snap, err)
	}
	return c.JSON(dto.StateResponse{Snapshot: snap})
}

// Close leaves the profile screen back to the dashboard.
func (h *ProfileHandler) Close(c *fiber.Ctx) error {
	snap, err := h.ctrl.Back()
	if err != nil {
		return failAuthflow(c, h.log, snap, err)
	}
	return c.JSON(dto.StateResponse{Snapshot: snap})
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	snap, err := h.ctrl.UpdateProfile(c.Context(), account.ProfileUpdate{
		Username: req.Username,
		Bio:      req.Bio,
	})
	if err != nil {
		return failAuthflow(c, h.log, snap, err)
	}
	return c.JSON(dto.StateResponse{Snapshot: snap})
}
