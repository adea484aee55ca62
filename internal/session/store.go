package session

import (
	"context"
	"time"

	"github.com/defi-staking/gateway/internal/models"
)

const (
	// StorageKey — client-local key the record lives under. Kept identical to
	// the web dashboard's localStorage key so exports stay interchangeable.
	StorageKey = "defi-staking-auth"

	// DefaultTTL — max age of a persisted session eligible for silent restore.
	DefaultTTL = 24 * time.Hour
)

// Record is the durable form of an AuthSession. Live provider/signer handles
// are stripped by construction: the persisted types cannot carry them.
type Record struct {
	User       models.AuthSession `json:"user"`
	Timestamp  int64              `json:"timestamp"` // epoch millis at save time
	WalletType string             `json:"walletType,omitempty"`
}

// Expired reports whether the record is past its TTL. An expired record must
// be deleted, never partially trusted.
func (r *Record) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return now.UnixMilli()-r.Timestamp > ttl.Milliseconds()
}

func (r *Record) valid() bool {
	return r.Timestamp > 0 && r.User.Valid()
}

// Store persists and restores the session record.
//
// Load fails closed: a missing record returns (nil, nil); a record that does
// not deserialize into a valid shape is deleted and (nil, nil) is returned.
type Store interface {
	Save(ctx context.Context, user models.AuthSession, walletType string) error
	Load(ctx context.Context) (*Record, error)
	Clear(ctx context.Context) error
}
