package models

import "strings"

// Auth methods
const (
	AuthMethodWallet = "wallet"
	AuthMethodEmail  = "email"
	AuthMethodLinked = "linked"
)

// AuthSession is the unified authenticated-or-not view the dashboard consumes.
// JSON field names are camelCase: the record is shared with the web client,
// which also reads it from its own localStorage export.
type AuthSession struct {
	IsAuthenticated   bool   `json:"isAuthenticated"`
	AuthMethod        string `json:"authMethod,omitempty"`
	WalletOnly        bool   `json:"walletOnly"`
	Address           string `json:"address,omitempty"`
	ChainID           int64  `json:"chainId,omitempty"`
	Username          string `json:"username,omitempty"`
	Email             string `json:"email,omitempty"`
	CanUpgradeAccount bool   `json:"canUpgradeAccount"`
	CreatedAt         int64  `json:"createdAt,omitempty"` // epoch millis
}

// Valid reports whether the session satisfies its own invariants:
// authenticated implies a wallet address or a full account identity,
// and wallet-only implies wallet auth with no account bound.
func (s *AuthSession) Valid() bool {
	if s == nil {
		return false
	}
	if s.IsAuthenticated && s.Address == "" && (s.Username == "" || s.Email == "") {
		return false
	}
	if s.WalletOnly && (s.AuthMethod != AuthMethodWallet || s.Email != "") {
		return false
	}
	return true
}

// DefaultUsername derives the friendly display name for wallet-only sessions.
func DefaultUsername(address string) string {
	if len(address) < 6 {
		return "Trader_" + strings.ToUpper(address)
	}
	return "Trader_" + strings.ToUpper(address[len(address)-6:])
}
