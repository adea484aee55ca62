package authflow

import "testing"

func TestIsValidTransition(t *testing.T) {
	tests := []struct {
		from     State
		to       State
		expected bool
	}{
		// Startup
		{StateRestoring, StateWalletConnect, true},
		{StateRestoring, StateAuthenticated, true},
		{StateRestoring, StateAuthOptions, false},
		{StateWalletConnect, StateRestoring, false},
		{StateAuthenticated, StateRestoring, false},

		// Wallet path
		{StateWalletConnect, StateAuthenticated, true},
		{StateWalletConnect, StateAuthOptions, true},
		{StateWalletConnect, StateEmailSignup, false},

		// Account path
		{StateAuthOptions, StateEmailSignup, true},
		{StateAuthOptions, StateEmailLogin, true},
		{StateAuthOptions, StateWalletConnect, true},
		{StateAuthOptions, StateAuthenticated, true},
		{StateEmailSignup, StateAuthenticated, true},
		{StateEmailSignup, StateAuthOptions, true},
		{StateEmailLogin, StateAuthenticated, true},
		{StateEmailLogin, StateAuthOptions, true},
		{StateEmailSignup, StateEmailLogin, false},
		{StateEmailLogin, StateWalletConnect, false},

		// Authenticated
		{StateAuthenticated, StateProfile, true},
		{StateAuthenticated, StateAuthOptions, true},
		{StateAuthenticated, StateWalletConnect, true},
		{StateAuthenticated, StateEmailSignup, false},
		{StateProfile, StateAuthenticated, true},
		{StateProfile, StateWalletConnect, true},
		{StateProfile, StateAuthOptions, false},

		// Same-state moves are no-ops
		{StateAuthenticated, StateAuthenticated, true},
		{StateWalletConnect, StateWalletConnect, true},
		{StateRestoring, StateRestoring, true},

		// Unknown states
		{"nonexistent", StateAuthenticated, false},
		{StateAuthenticated, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := IsValidTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}
