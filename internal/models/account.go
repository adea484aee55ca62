package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is the backend-owned identity. The gateway holds a read-through
// cached copy; it never deletes accounts.
type Account struct {
	ID            uuid.UUID `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	Bio           *string   `json:"bio,omitempty"`
	WalletAddress *string   `json:"wallet_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
