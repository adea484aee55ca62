package wallet

import (
	"testing"
	"time"
)

func TestDeepLink(t *testing.T) {
	dapp := "https://app.defi-staking.example/dashboard"

	tests := []struct {
		t    Type
		want string
	}{
		{TypeMetaMask, "https://metamask.app.link/dapp/app.defi-staking.example/dashboard"},
		{TypeTrust, "https://link.trustwallet.com/open_url?coin_id=60&url=https%3A%2F%2Fapp.defi-staking.example%2Fdashboard"},
		{TypeCoinbase, "https://go.cb-w.com/dapp?cb_url=https%3A%2F%2Fapp.defi-staking.example%2Fdashboard"},
	}
	for _, tt := range tests {
		t.Run(string(tt.t), func(t *testing.T) {
			got, err := DeepLink(tt.t, dapp)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DeepLink = %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := DeepLink(TypeWalletConnect, dapp); err == nil {
		t.Fatal("walletconnect has no deep link")
	}
}

func TestNewHandoffMobile(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := NewHandoff(TypeMetaMask, "https://app.defi-staking.example", true, 3*time.Second, now)

	if h.DeepLink == "" {
		t.Fatal("mobile handoff must carry a deep link")
	}
	if h.InstallURL != "https://metamask.io/download/" {
		t.Fatalf("install url = %s", h.InstallURL)
	}
	if !h.Deadline.Equal(now.Add(3 * time.Second)) {
		t.Fatalf("deadline = %s", h.Deadline)
	}
	if h.Expired(now.Add(2 * time.Second)) {
		t.Fatal("not yet expired")
	}
	if !h.Expired(now.Add(4 * time.Second)) {
		t.Fatal("past the wait window")
	}
}

func TestNewHandoffDesktop(t *testing.T) {
	h := NewHandoff(TypeTrust, "https://app.defi-staking.example", false, 3*time.Second, time.Now())

	if h.DeepLink != "" || !h.Deadline.IsZero() {
		t.Fatalf("desktop handoff = %+v, want install guidance only", h)
	}
	if h.Expired(time.Now().Add(time.Hour)) {
		t.Fatal("desktop handoff never expires")
	}
	if !h.Matches(TypeTrust) || h.Matches(TypeMetaMask) {
		t.Fatal("Matches broken")
	}
}
