package authflow

import (
	"context"
	"testing"
	"time"

	"github.com/defi-staking/gateway/internal/events"
	"github.com/defi-staking/gateway/internal/models"
	"github.com/defi-staking/gateway/internal/session"
	"github.com/defi-staking/gateway/internal/wallet"
)

const (
	addrA = "0x1111111111111111111111111111111111111111"
	addrB = "0x2222222222222222222222222222222222222222"
)

func walletOnlyRecord(address string, age time.Duration) *session.Record {
	return &session.Record{
		User: models.AuthSession{
			IsAuthenticated:   true,
			AuthMethod:        models.AuthMethodWallet,
			WalletOnly:        true,
			Address:           address,
			ChainID:           1,
			Username:          models.DefaultUsername(address),
			CanUpgradeAccount: true,
			CreatedAt:         time.Now().Add(-age).UnixMilli(),
		},
		Timestamp:  time.Now().Add(-age).UnixMilli(),
		WalletType: "metamask",
	}
}

func TestRestoreNothingPersisted(t *testing.T) {
	f := newFixture(t, nil, nil)

	snap, err := f.ctrl.Restore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != StateWalletConnect {
		t.Fatalf("state = %s, want %s", snap.State, StateWalletConnect)
	}
	if snap.Session != nil {
		t.Fatal("expected no session")
	}
}

func TestRestoreReconnectsAndIsIdempotent(t *testing.T) {
	provider := newMetaMaskProvider(addrA, 5)
	f := newFixture(t, provider, walletOnlyRecord(addrA, time.Hour))

	snap, err := f.ctrl.Restore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != StateAuthenticated {
		t.Fatalf("state = %s, want %s", snap.State, StateAuthenticated)
	}
	if snap.Session == nil || snap.Session.Address != addrA {
		t.Fatalf("session = %+v, want address %s", snap.Session, addrA)
	}
	// Chain id is re-derived from the live provider, not trusted from disk.
	if snap.Session.ChainID != 5 {
		t.Fatalf("chainId = %d, want 5", snap.Session.ChainID)
	}
	if !snap.Session.WalletOnly {
		t.Fatal("expected wallet-only session")
	}

	dialsBefore := f.dialer.dials
	again, err := f.ctrl.Restore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if again.State != StateAuthenticated {
		t.Fatalf("second restore state = %s", again.State)
	}
	if f.dialer.dials != dialsBefore {
		t.Fatal("second restore must not touch the provider")
	}
}

func TestRestoreMismatchForcesLogout(t *testing.T) {
	provider := newMetaMaskProvider(addrB, 1)
	provider.accounts = []string{addrB}
	f := newFixture(t, provider, walletOnlyRecord(addrA, time.Hour))

	snap, err := f.ctrl.Restore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != StateWalletConnect {
		t.Fatalf("state = %s, want %s", snap.State, StateWalletConnect)
	}
	if snap.Session != nil {
		t.Fatal("mismatched session must not be restored")
	}
	if f.store.record() != nil {
		t.Fatal("mismatched record must be cleared")
	}
	f.waitEvent(t, events.EventSessionCleared)
}

func TestRestoreNoAccountsForcesLogout(t *testing.T) {
	provider := newMetaMaskProvider(addrA, 1)
	provider.accounts = nil
	f := newFixture(t, provider, walletOnlyRecord(addrA, time.Hour))

	snap, _ := f.ctrl.Restore(context.Background())
	if snap.State != StateWalletConnect || f.store.record() != nil {
		t.Fatalf("state = %s, record = %+v", snap.State, f.store.record())
	}
}

func TestRestoreNoProviderClearsSession(t *testing.T) {
	f := newFixture(t, nil, walletOnlyRecord(addrA, time.Hour))
	f.dialer.err = wallet.ErrNoProvider

	snap, err := f.ctrl.Restore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != StateWalletConnect {
		t.Fatalf("state = %s, want %s", snap.State, StateWalletConnect)
	}
	if f.store.record() != nil {
		t.Fatal("unverifiable record must be cleared")
	}
}

func TestRestoreExpiredSession(t *testing.T) {
	provider := newMetaMaskProvider(addrA, 1)
	f := newFixture(t, provider, walletOnlyRecord(addrA, 25*time.Hour))

	snap, err := f.ctrl.Restore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != StateWalletConnect {
		t.Fatalf("state = %s, want %s", snap.State, StateWalletConnect)
	}
	if f.store.record() != nil {
		t.Fatal("expired record must be cleared")
	}
	if f.dialer.dials != 0 {
		t.Fatal("expired record must not reach the provider")
	}
}

func TestRestoreEmailOnlySession(t *testing.T) {
	rec := &session.Record{
		User: models.AuthSession{
			IsAuthenticated: true,
			AuthMethod:      models.AuthMethodEmail,
			Email:           "alice@example.com",
			Username:        "alice",
		},
		Timestamp: time.Now().Add(-time.Hour).UnixMilli(),
	}
	f := newFixture(t, nil, rec)

	snap, err := f.ctrl.Restore(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.State != StateAuthenticated {
		t.Fatalf("state = %s, want %s", snap.State, StateAuthenticated)
	}
	if snap.Session.Email != "alice@example.com" {
		t.Fatalf("email = %s", snap.Session.Email)
	}
	if f.dialer.dials != 0 {
		t.Fatal("email-only session must not dial a wallet")
	}
}
