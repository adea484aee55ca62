package dto

import (
	"github.com/defi-staking/gateway/internal/authflow"
	"github.com/defi-staking/gateway/internal/models"
	"github.com/defi-staking/gateway/internal/wallet"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// StateResponse is the snapshot plus, on fresh authentication, a gateway
// token for the protected endpoints.
type StateResponse struct {
	authflow.Snapshot
	Token string `json:"token,omitempty"`
}

type WalletOption struct {
	Type        wallet.Type `json:"type"`
	DisplayName string      `json:"displayName"`
	Detected    bool        `json:"detected"`
	InstallURL  string      `json:"installUrl"`
}

type DetectWalletsResponse struct {
	Mobile  bool           `json:"mobile"`
	Wallets []WalletOption `json:"wallets"`
}

type ProfileResponse struct {
	Account *models.Account `json:"account"`
}
