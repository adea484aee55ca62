package wallet

import "context"

// Type identifies a supported wallet.
type Type string

const (
	TypeMetaMask      Type = "metamask"
	TypeTrust         Type = "trust"
	TypeCoinbase      Type = "coinbase"
	TypeWalletConnect Type = "walletconnect"
	TypeOther         Type = "other"
)

var AllTypes = []Type{TypeMetaMask, TypeTrust, TypeCoinbase, TypeWalletConnect}

func ParseType(s string) Type {
	switch Type(s) {
	case TypeMetaMask, TypeTrust, TypeCoinbase, TypeWalletConnect:
		return Type(s)
	default:
		return TypeOther
	}
}

func (t Type) DisplayName() string {
	switch t {
	case TypeMetaMask:
		return "MetaMask"
	case TypeTrust:
		return "Trust Wallet"
	case TypeCoinbase:
		return "Coinbase"
	case TypeWalletConnect:
		return "WalletConnect"
	default:
		return "Unknown"
	}
}

// Identity is the live wallet identity. It is ephemeral: created on a
// successful connect, destroyed on disconnect, account change, or logout.
// The signing capability lives in the Provider that produced it and is
// never serialized.
type Identity struct {
	Address    string `json:"address"` // checksummed hex
	ChainID    int64  `json:"chainId"`
	WalletType Type   `json:"walletType"`
	HasSigner  bool   `json:"hasSigner"`
}

// Provider normalizes heterogeneous wallet providers into one capability
// surface. A Provider owns at most one live subscription set: Subscribe
// replaces any previous subscription rather than stacking a second one.
type Provider interface {
	// Connect requests account access (eth_requestAccounts). May suspend on
	// user approval in the external wallet UI. Rejections are distinguishable:
	// ErrUserRejected when the user declines, ErrNetwork for transport faults.
	Connect(ctx context.Context) (*Identity, error)

	// Accounts is a read-only capability query (eth_accounts). It never
	// prompts the user.
	Accounts(ctx context.Context) ([]string, error)

	ChainID(ctx context.Context) (int64, error)

	// SignMessage signs message with the given account via personal_sign.
	// Returns the signature as a 0x-prefixed hex string.
	SignMessage(ctx context.Context, address, message string) (string, error)

	// Subscribe registers account/chain change callbacks and returns a stop
	// function. Any previously active subscription is torn down first.
	Subscribe(onAccountsChanged func([]string), onChainChanged func(int64)) (func(), error)

	Close()
}
