package dto

import "github.com/defi-staking/gateway/internal/wallet"

type DetectWalletsRequest struct {
	Capabilities wallet.Capabilities `json:"capabilities"`
	UserAgent    string              `json:"userAgent"`
}

type ConnectWalletRequest struct {
	WalletType   string              `json:"walletType"`
	Capabilities wallet.Capabilities `json:"capabilities"`
	UserAgent    string              `json:"userAgent"`
}

type ResolveHandoffRequest struct {
	WalletType string `json:"walletType"`
	// Focused mirrors document.hasFocus() at the end of the wait window.
	Focused bool `json:"focused"`
}

type ChooseRequest struct {
	Flow string `json:"flow"` // "signup" or "login"
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
}
