package models

import "testing"

func TestAuthSessionValid(t *testing.T) {
	tests := []struct {
		name string
		s    *AuthSession
		want bool
	}{
		{"nil", nil, false},
		{"empty unauthenticated", &AuthSession{}, true},
		{
			"wallet-only",
			&AuthSession{IsAuthenticated: true, AuthMethod: AuthMethodWallet, WalletOnly: true, Address: "0xabc", Username: "Trader_ABC"},
			true,
		},
		{
			"email account",
			&AuthSession{IsAuthenticated: true, AuthMethod: AuthMethodEmail, Username: "alice", Email: "a@b.c"},
			true,
		},
		{
			"linked",
			&AuthSession{IsAuthenticated: true, AuthMethod: AuthMethodLinked, Address: "0xabc", Username: "alice", Email: "a@b.c"},
			true,
		},
		{
			"authenticated with no identity at all",
			&AuthSession{IsAuthenticated: true},
			false,
		},
		{
			"wallet-only with email",
			&AuthSession{IsAuthenticated: true, AuthMethod: AuthMethodWallet, WalletOnly: true, Address: "0xabc", Email: "a@b.c"},
			false,
		},
		{
			"wallet-only with wrong method",
			&AuthSession{IsAuthenticated: true, AuthMethod: AuthMethodEmail, WalletOnly: true, Address: "0xabc"},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultUsername(t *testing.T) {
	tests := []struct {
		address string
		want    string
	}{
		{"0x1234567890abcdef1234567890abcdefdeadbeef", "Trader_ADBEEF"},
		{"0xAbCd", "Trader_0XABCD"},
		{"", "Trader_"},
	}
	for _, tt := range tests {
		if got := DefaultUsername(tt.address); got != tt.want {
			t.Errorf("DefaultUsername(%q) = %q, want %q", tt.address, got, tt.want)
		}
	}
}
