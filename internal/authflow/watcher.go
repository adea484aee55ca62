package authflow

import (
	"context"
	"strings"
	"time"

	"github.com/defi-staking/gateway/internal/events"
	"github.com/defi-staking/gateway/internal/wallet"
	"go.uber.org/zap"
)

// attachWatcherLocked subscribes to provider account/chain events. Caller
// holds c.mu and has already set c.provider.
func (c *Controller) attachWatcherLocked() {
	if c.provider == nil {
		return
	}
	stop, err := c.provider.Subscribe(c.handleAccountsChanged, c.handleChainChanged)
	if err != nil {
		// Without the subscription account switches go unnoticed until the
		// next restore, which still catches the mismatch.
		c.log.Warn("wallet event subscription failed", zap.Error(err))
		return
	}
	c.unsub = stop
}

// handleAccountsChanged reacts to the wallet switching or dropping accounts.
// The current session is cleared immediately; when a new account is present,
// a wallet-only reconnect is scheduled after a short delay so rapid switches
// coalesce. A previously linked account never follows the new address.
func (c *Controller) handleAccountsChanged(accounts []string) {
	c.mu.Lock()
	if c.identity == nil {
		c.mu.Unlock()
		return
	}
	if len(accounts) > 0 && strings.EqualFold(accounts[0], c.identity.Address) {
		c.mu.Unlock()
		return
	}

	walletType := c.identity.WalletType
	provider := c.provider

	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	c.identity = nil
	c.session = nil
	c.state = StateWalletConnect

	if len(accounts) == 0 {
		// Wallet disconnected entirely.
		c.provider = nil
		snap := c.snapshotLocked()
		c.mu.Unlock()
		provider.Close()
		c.clearEverything()
		c.log.Info("wallet disconnected")
		c.publish(events.EventSessionCleared, nil)
		c.publish(events.EventAuthStateChanged, snap)
		return
	}

	// Hand the provider to the reconnect timer; it is no longer ours.
	c.provider = nil
	next := wallet.ChecksumAddress(accounts[0])
	c.reconnect = time.AfterFunc(c.cfg.ReconnectDelay, func() {
		c.reconnectWalletOnly(provider, walletType, next)
	})
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.clearEverything()
	c.log.Info("wallet account changed", zap.String("next", next))
	c.publish(events.EventSessionCleared, nil)
	c.publish(events.EventAuthStateChanged, snap)
}

// reconnectWalletOnly re-establishes a session for the new active account.
// The result is always wallet-only, whatever the previous session was.
func (c *Controller) reconnectWalletOnly(provider wallet.Provider, t wallet.Type, address string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	chainID, err := provider.ChainID(ctx)
	if err != nil {
		c.log.Warn("reconnect after account change failed", zap.Error(err))
		provider.Close()
		return
	}

	identity := &wallet.Identity{
		Address:    address,
		ChainID:    chainID,
		WalletType: t,
		HasSigner:  true,
	}
	sess := walletOnlySession(identity, c.now())

	c.mu.Lock()
	if c.state != StateWalletConnect || c.provider != nil {
		// The user moved on while we waited; drop the stale reconnect.
		c.mu.Unlock()
		provider.Close()
		return
	}
	c.provider = provider
	c.identity = identity
	s := sess
	c.session = &s
	c.state = StateAuthenticated
	c.reconnect = nil
	c.attachWatcherLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.store.Save(ctx, sess, string(t)); err != nil {
		c.log.Warn("session save failed", zap.Error(err))
	}
	c.log.Info("reconnected to new wallet account", zap.String("address", address))
	c.publish(events.EventAuthStateChanged, snap)
}

// handleChainChanged tears the session down and tells the dashboard to fully
// reload: every on-chain view is stale at once, so partial refresh is not
// worth the inconsistency risk.
func (c *Controller) handleChainChanged(chainID int64) {
	c.mu.Lock()
	if c.identity == nil || c.identity.ChainID == chainID {
		c.mu.Unlock()
		return
	}
	c.teardownWalletLocked()
	c.session = nil
	c.handoff = nil
	c.state = StateWalletConnect
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.clearEverything()
	c.log.Info("chain changed, forcing reload", zap.Int64("chainId", chainID))
	c.publish(events.EventSessionCleared, nil)
	c.publish(events.EventReloadRequired, map[string]int64{"chainId": chainID})
	c.publish(events.EventAuthStateChanged, snap)
}

// clearEverything drops the persisted record and the backend session.
func (c *Controller) clearEverything() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.store.Clear(ctx); err != nil {
		c.log.Warn("session clear failed", zap.Error(err))
	}
	c.backend.Logout()
}
