package wallet

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Install pages shown when a wallet is not present.
var installURLs = map[Type]string{
	TypeMetaMask:      "https://metamask.io/download/",
	TypeTrust:         "https://trustwallet.com/",
	TypeCoinbase:      "https://wallet.coinbase.com/",
	TypeWalletConnect: "https://walletconnect.com/",
}

func InstallURL(t Type) string {
	if u, ok := installURLs[t]; ok {
		return u
	}
	return installURLs[TypeWalletConnect]
}

// DeepLink builds the platform handoff URL that opens the dapp inside the
// wallet's mobile app.
func DeepLink(t Type, dappURL string) (string, error) {
	u, err := url.Parse(dappURL)
	if err != nil {
		return "", fmt.Errorf("invalid dapp url: %w", err)
	}

	switch t {
	case TypeMetaMask:
		return fmt.Sprintf("https://metamask.app.link/dapp/%s%s", u.Host, u.Path), nil
	case TypeTrust:
		return fmt.Sprintf("https://link.trustwallet.com/open_url?coin_id=60&url=%s", url.QueryEscape(dappURL)), nil
	case TypeCoinbase:
		return fmt.Sprintf("https://go.cb-w.com/dapp?cb_url=%s", url.QueryEscape(dappURL)), nil
	default:
		return "", fmt.Errorf("no deep link for wallet %q", t)
	}
}

// Handoff is the user-facing guidance produced when a desired wallet is not
// detected. It is a resolution, not an error: the caller renders it and, on
// mobile, waits out the focus-retained heuristic before falling back to the
// install prompt.
type Handoff struct {
	WalletType Type      `json:"walletType"`
	DeepLink   string    `json:"deepLink,omitempty"`
	InstallURL string    `json:"installUrl"`
	Mobile     bool      `json:"mobile"`
	Deadline   time.Time `json:"deadline,omitempty"`
}

// NewHandoff builds guidance for an undetected wallet. On mobile it carries a
// deep link and a deadline; if the page still has input focus when the
// deadline passes, the app handoff failed and the install prompt applies.
func NewHandoff(t Type, dappURL string, mobile bool, timeout time.Duration, now time.Time) *Handoff {
	h := &Handoff{
		WalletType: t,
		InstallURL: InstallURL(t),
		Mobile:     mobile,
	}
	if !mobile {
		return h
	}
	if link, err := DeepLink(t, dappURL); err == nil {
		h.DeepLink = link
		h.Deadline = now.Add(timeout)
	}
	return h
}

// Expired reports whether the handoff wait window has passed.
func (h *Handoff) Expired(now time.Time) bool {
	return !h.Deadline.IsZero() && now.After(h.Deadline)
}

// Matches reports whether the handoff belongs to the given wallet.
func (h *Handoff) Matches(t Type) bool {
	return h != nil && strings.EqualFold(string(h.WalletType), string(t))
}
