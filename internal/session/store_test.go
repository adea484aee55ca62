package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/defi-staking/gateway/internal/models"
	"go.uber.org/zap"
)

func walletOnlyUser(address string) models.AuthSession {
	return models.AuthSession{
		IsAuthenticated:   true,
		AuthMethod:        models.AuthMethodWallet,
		WalletOnly:        true,
		Address:           address,
		ChainID:           1,
		Username:          models.DefaultUsername(address),
		CanUpgradeAccount: true,
		CreatedAt:         time.Now().UnixMilli(),
	}
}

func TestRecordExpiredBoundary(t *testing.T) {
	saved := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &Record{Timestamp: saved.UnixMilli()}
	ttl := 24 * time.Hour

	tests := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{"fresh", saved.Add(time.Hour), false},
		{"exactly at ttl", saved.Add(ttl), false},
		{"one ms past ttl", saved.Add(ttl + time.Millisecond), true},
		{"well past ttl", saved.Add(25 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rec.Expired(tt.now, ttl); got != tt.expired {
				t.Errorf("Expired(%s) = %v, want %v", tt.now, got, tt.expired)
			}
		})
	}
}

func TestRecordExpiredDefaultTTL(t *testing.T) {
	rec := &Record{Timestamp: time.Now().Add(-25 * time.Hour).UnixMilli()}
	if !rec.Expired(time.Now(), 0) {
		t.Fatal("zero ttl must fall back to the 24h default")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defi-staking-auth.json")
	store := NewFileStore(path, zap.NewNop())
	ctx := context.Background()

	user := walletOnlyUser("0x1111111111111111111111111111111111111111")
	if err := store.Save(ctx, user, "metamask"); err != nil {
		t.Fatal(err)
	}

	rec, err := store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.User != user {
		t.Fatalf("user = %+v, want %+v", rec.User, user)
	}
	if rec.WalletType != "metamask" || rec.Timestamp == 0 {
		t.Fatalf("record = %+v", rec)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	rec, err = store.Load(ctx)
	if err != nil || rec != nil {
		t.Fatalf("after clear: rec = %+v, err = %v", rec, err)
	}

	// Clearing an already-cleared store is fine.
	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop())
	rec, err := store.Load(context.Background())
	if err != nil || rec != nil {
		t.Fatalf("rec = %+v, err = %v", rec, err)
	}
}

func TestFileStoreFailsClosedOnGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defi-staking-auth.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path, zap.NewNop())

	rec, err := store.Load(context.Background())
	if err != nil || rec != nil {
		t.Fatalf("rec = %+v, err = %v", rec, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("malformed record must be deleted")
	}
}

func TestFileStoreFailsClosedOnInvalidShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "defi-staking-auth.json")
	// Well-formed JSON, but walletOnly with an email violates the invariant.
	blob := `{"user":{"isAuthenticated":true,"authMethod":"wallet","walletOnly":true,"email":"x@y.z","address":"0x1111111111111111111111111111111111111111"},"timestamp":123}`
	if err := os.WriteFile(path, []byte(blob), 0o600); err != nil {
		t.Fatal(err)
	}
	store := NewFileStore(path, zap.NewNop())

	rec, err := store.Load(context.Background())
	if err != nil || rec != nil {
		t.Fatalf("rec = %+v, err = %v", rec, err)
	}
}
