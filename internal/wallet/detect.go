package wallet

import (
	"regexp"
	"strings"
)

// Capabilities are the injected-provider flags as reported by the dashboard.
// Mobile in-app wallet browsers often omit them, so detection falls back to
// user-agent heuristics there. A positive detection is a UI affordance only —
// identity proof comes from live signing, never from these flags.
type Capabilities struct {
	Injected           bool `json:"injected"`
	IsMetaMask         bool `json:"isMetaMask"`
	IsTrust            bool `json:"isTrust"`
	IsCoinbaseWallet   bool `json:"isCoinbaseWallet"`
	IsCoinbaseBrowser  bool `json:"isCoinbaseBrowser"`
	HasMetaMaskState   bool `json:"hasMetaMaskState"`   // provider._metamask present
	HasSelectedAddress bool `json:"hasSelectedAddress"` // provider.selectedAddress defined
	HasProviderList    bool `json:"hasProviderList"`    // provider.providers contains a MetaMask entry
	HasRequest         bool `json:"hasRequest"`         // provider.request is callable
	CoinbaseExtension  bool `json:"coinbaseExtension"`  // window.coinbaseWalletExtension present
}

var mobileUA = regexp.MustCompile(`(?i)Android|webOS|iPhone|iPad|iPod|BlackBerry|IEMobile|Opera Mini`)

// IsMobileUA reports whether the user agent looks like a mobile browser.
func IsMobileUA(userAgent string) bool {
	return mobileUA.MatchString(userAgent)
}

// Detect reports whether the wallet appears usable in the reporting client.
func Detect(t Type, caps Capabilities, userAgent string) bool {
	switch t {
	case TypeMetaMask:
		return detectMetaMask(caps, userAgent)
	case TypeTrust:
		return detectTrust(caps, userAgent)
	case TypeCoinbase:
		return detectCoinbase(caps)
	case TypeWalletConnect:
		// WalletConnect needs no injected provider.
		return true
	default:
		return false
	}
}

// DetectAll evaluates every supported wallet against one capability report.
func DetectAll(caps Capabilities, userAgent string) map[Type]bool {
	out := make(map[Type]bool, len(AllTypes))
	for _, t := range AllTypes {
		out[t] = Detect(t, caps, userAgent)
	}
	return out
}

func detectMetaMask(caps Capabilities, ua string) bool {
	if !caps.Injected {
		return false
	}
	if caps.IsMetaMask {
		return true
	}
	// MetaMask mobile browser identifies itself in the user agent.
	if strings.Contains(ua, "MetaMaskMobile") {
		return true
	}
	// Mobile providers may omit isMetaMask; fall back to secondary signals.
	if IsMobileUA(ua) {
		if caps.HasMetaMaskState || caps.HasSelectedAddress || caps.HasProviderList {
			return true
		}
		if caps.HasRequest {
			return true
		}
	}
	return false
}

func detectTrust(caps Capabilities, ua string) bool {
	if !caps.Injected {
		return false
	}
	if caps.IsTrust {
		return true
	}
	// On mobile an unflagged injected provider could be Trust Wallet.
	if IsMobileUA(ua) && !caps.IsMetaMask && !caps.IsCoinbaseWallet {
		return true
	}
	return false
}

func detectCoinbase(caps Capabilities) bool {
	if caps.CoinbaseExtension {
		return true
	}
	if !caps.Injected {
		return false
	}
	return caps.IsCoinbaseWallet || caps.IsCoinbaseBrowser
}
