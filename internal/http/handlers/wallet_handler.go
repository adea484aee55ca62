package handlers

import (
	"errors"

	"github.com/defi-staking/gateway/internal/authflow"
	"github.com/defi-staking/gateway/internal/http/dto"
	"github.com/defi-staking/gateway/internal/wallet"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type WalletHandler struct {
	ctrl *authflow.Controller
	log  *zap.Logger
}

func NewWalletHandler(ctrl *authflow.Controller, log *zap.Logger) *WalletHandler {
	return &WalletHandler{ctrl: ctrl, log: log}
}

// Detect evaluates every supported wallet against the capability report the
// dashboard sends. Detection is advisory: a positive hit only unlocks the
// connect button.
func (h *WalletHandler) Detect(c *fiber.Ctx) error {
	var req dto.DetectWalletsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Get("User-Agent")
	}

	detected := wallet.DetectAll(req.Capabilities, req.UserAgent)

	resp := dto.DetectWalletsResponse{Mobile: wallet.IsMobileUA(req.UserAgent)}
	for _, t := range wallet.AllTypes {
		resp.Wallets = append(resp.Wallets, dto.WalletOption{
			Type:        t,
			DisplayName: t.DisplayName(),
			Detected:    detected[t],
			InstallURL:  wallet.InstallURL(t),
		})
	}
	return c.JSON(resp)
}

func (h *WalletHandler) Connect(c *fiber.Ctx) error {
	var req dto.ConnectWalletRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Get("User-Agent")
	}

	snap, err := h.ctrl.ConnectWallet(c.Context(), wallet.ParseType(req.WalletType), req.Capabilities, req.UserAgent)
	if err != nil {
		return h.fail(c, snap, err)
	}
	return c.JSON(dto.StateResponse{Snapshot: snap})
}

// ResolveHandoff settles a pending mobile deep-link handoff.
func (h *WalletHandler) ResolveHandoff(c *fiber.Ctx) error {
	var req dto.ResolveHandoffRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request body"})
	}

	res, err := h.ctrl.ResolveHandoff(wallet.ParseType(req.WalletType), req.Focused)
	if err != nil {
		return failAuthflow(c, h.log, res.Snapshot, err)
	}
	return c.JSON(res)
}

func (h *WalletHandler) fail(c *fiber.Ctx, snap authflow.Snapshot, err error) error {
	switch {
	case errors.Is(err, wallet.ErrUserRejected):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error(), Code: "user_rejected"})
	case errors.Is(err, wallet.ErrNotInstalled):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error(), Code: "not_installed"})
	case errors.Is(err, wallet.ErrNoProvider):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Error: err.Error(), Code: "no_provider"})
	case errors.Is(err, wallet.ErrNetwork):
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{Error: err.Error(), Code: "network"})
	case errors.Is(err, wallet.ErrSigningFailed):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error(), Code: "signing_failed"})
	}
	return failAuthflow(c, h.log, snap, err)
}
