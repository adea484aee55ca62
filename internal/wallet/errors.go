package wallet

import "errors"

var (
	// ErrNotInstalled — wallet software is absent; recoverable via install guidance.
	ErrNotInstalled = errors.New("wallet not installed")

	// ErrUserRejected — the user declined a prompt; no state change.
	ErrUserRejected = errors.New("request rejected by user")

	// ErrNetwork — the provider transport is unreachable.
	ErrNetwork = errors.New("wallet provider unreachable")

	// ErrSigningFailed — personal_sign failed for a reason other than rejection.
	ErrSigningFailed = errors.New("message signing failed")

	// ErrNoProvider — no live provider is available for the requested wallet.
	ErrNoProvider = errors.New("no wallet provider available")
)
