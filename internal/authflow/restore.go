package authflow

import (
	"context"
	"errors"
	"strings"

	"github.com/defi-staking/gateway/internal/session"
	"github.com/defi-staking/gateway/internal/wallet"
	"go.uber.org/zap"
)

// VerifyOutcome is the result of checking a persisted wallet session against
// the live provider.
type VerifyOutcome int

const (
	// OutcomeReconnected — provider reachable and still exposes the stored
	// address. The session may be restored.
	OutcomeReconnected VerifyOutcome = iota

	// OutcomeMismatch — provider reachable but the stored address is gone or
	// replaced. The session must be discarded; restoring it would show one
	// user's data against another user's wallet.
	OutcomeMismatch

	// OutcomeNoProvider — no provider reachable for the stored wallet type.
	OutcomeNoProvider
)

// ProviderDialer opens a live connection to a wallet provider.
type ProviderDialer interface {
	Dial(ctx context.Context, t wallet.Type) (wallet.Provider, error)
}

// Verifier re-checks a persisted wallet session against the current provider
// state without prompting the user.
type Verifier struct {
	dialer ProviderDialer
	log    *zap.Logger
}

func NewVerifier(dialer ProviderDialer, log *zap.Logger) *Verifier {
	return &Verifier{dialer: dialer, log: log}
}

// Verify dials the stored wallet type and silently lists its accounts. On
// OutcomeReconnected the returned provider is live and owned by the caller;
// for every other outcome the provider is already closed.
func (v *Verifier) Verify(ctx context.Context, rec *session.Record) (VerifyOutcome, wallet.Provider, *wallet.Identity, error) {
	t := wallet.ParseType(rec.WalletType)

	provider, err := v.dialer.Dial(ctx, t)
	if err != nil {
		if errors.Is(err, wallet.ErrNoProvider) || errors.Is(err, wallet.ErrNotInstalled) {
			v.log.Info("no provider for stored session", zap.String("walletType", rec.WalletType))
			return OutcomeNoProvider, nil, nil, nil
		}
		return OutcomeNoProvider, nil, nil, err
	}

	accounts, err := provider.Accounts(ctx)
	if err != nil {
		provider.Close()
		v.log.Warn("provider unreachable during session restore", zap.Error(err))
		return OutcomeNoProvider, nil, nil, nil
	}

	if len(accounts) == 0 || !strings.EqualFold(accounts[0], rec.User.Address) {
		provider.Close()
		v.log.Info("stored session address no longer active",
			zap.String("stored", rec.User.Address),
		)
		return OutcomeMismatch, nil, nil, nil
	}

	// Re-derive the identity instead of trusting the record: the chain may
	// have changed while the gateway was down.
	chainID, err := provider.ChainID(ctx)
	if err != nil {
		provider.Close()
		return OutcomeNoProvider, nil, nil, nil
	}

	identity := &wallet.Identity{
		Address:    rec.User.Address,
		ChainID:    chainID,
		WalletType: t,
		HasSigner:  true,
	}
	return OutcomeReconnected, provider, identity, nil
}
