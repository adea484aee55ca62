package account

import (
	"context"
	"errors"

	"github.com/defi-staking/gateway/internal/linking"
	"github.com/defi-staking/gateway/internal/models"
)

var (
	// ErrAlreadyLinked — the wallet is bound to a different account. Terminal
	// for the attempt; the user must pick another wallet or account.
	ErrAlreadyLinked = errors.New("wallet already linked to another account")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrUnauthenticated    = errors.New("no active backend session")

	// ErrUnavailable — backend unreachable; retry is left to the user.
	ErrUnavailable = errors.New("account backend unavailable")
)

// Profile carries the optional fields supplied at signup.
type Profile struct {
	Username string `json:"username"`
	Bio      string `json:"bio,omitempty"`
}

// ProfileUpdate is a partial profile mutation.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

// Backend is the external account store. The gateway calls it as an opaque
// collaborator; it owns usernames (globally unique) and is the sole authority
// on wallet-link conflicts.
type Backend interface {
	Signup(ctx context.Context, email, password string, profile Profile) (*models.Account, error)
	Login(ctx context.Context, email, password string) (*models.Account, error)
	UpdateProfile(ctx context.Context, fields ProfileUpdate) (*models.Account, error)
	LinkWalletAddress(ctx context.Context, proof linking.Proof) error
	CheckUsernameAvailable(ctx context.Context, username string) (bool, error)

	// CurrentAccount returns the cached copy of the backend identity for the
	// active backend session, or nil when logged out.
	CurrentAccount() *models.Account

	// Logout drops the backend session and the cached identity.
	Logout()
}
