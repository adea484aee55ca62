package authflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/defi-staking/gateway/internal/account"
	"github.com/defi-staking/gateway/internal/config"
	"github.com/defi-staking/gateway/internal/events"
	"github.com/defi-staking/gateway/internal/linking"
	"github.com/defi-staking/gateway/internal/models"
	"github.com/defi-staking/gateway/internal/session"
	"github.com/defi-staking/gateway/internal/wallet"
	"go.uber.org/zap"
)

var (
	// ErrBusy — the same form is already in flight. The duplicate trigger is
	// ignored, never queued.
	ErrBusy = errors.New("operation already in progress")

	// ErrBadState — the operation is not valid in the current flow state.
	ErrBadState = errors.New("operation not allowed in current state")

	ErrInvalidInput = errors.New("invalid input")

	// ErrComingSoon — WalletConnect is presented but not wired up yet.
	ErrComingSoon = errors.New("walletconnect support is coming soon")
)

// Form names double as loading-flag keys.
const (
	formRestore = "restore"
	formConnect = "connect"
	formSignup  = "signup"
	formLogin   = "login"
	formProfile = "profile"
)

// Snapshot is the externally visible flow state.
type Snapshot struct {
	State      State               `json:"state"`
	Session    *models.AuthSession `json:"session,omitempty"`
	WalletType wallet.Type         `json:"walletType,omitempty"`
	Handoff    *wallet.Handoff     `json:"handoff,omitempty"`
}

// HandoffResolution is the verdict on a pending mobile deep-link handoff.
type HandoffResolution struct {
	Failed     bool     `json:"failed"`
	InstallURL string   `json:"installUrl,omitempty"`
	Snapshot   Snapshot `json:"snapshot"`
}

// Controller owns the auth flow state machine. All mutations go through it;
// slow provider and backend calls run outside the lock and re-validate the
// state on commit.
type Controller struct {
	cfg      *config.Config
	store    session.Store
	backend  account.Backend
	dialer   ProviderDialer
	verifier *Verifier
	linker   *linking.Linker
	bus      events.Publisher
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    State
	session  *models.AuthSession
	provider wallet.Provider
	identity *wallet.Identity
	handoff  *wallet.Handoff
	unsub    func()
	loading  map[string]bool

	reconnect *time.Timer
}

func NewController(
	cfg *config.Config,
	store session.Store,
	backend account.Backend,
	dialer ProviderDialer,
	verifier *Verifier,
	linker *linking.Linker,
	bus events.Publisher,
	log *zap.Logger,
) *Controller {
	return &Controller{
		cfg:      cfg,
		store:    store,
		backend:  backend,
		dialer:   dialer,
		verifier: verifier,
		linker:   linker,
		bus:      bus,
		log:      log,
		now:      time.Now,
		state:    StateRestoring,
		loading:  map[string]bool{},
	}
}

// Snapshot returns the current flow state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{State: c.state, Handoff: c.handoff}
	if c.session != nil {
		s := *c.session
		snap.Session = &s
	}
	if c.identity != nil {
		snap.WalletType = c.identity.WalletType
	}
	return snap
}

// Restore decides whether a persisted session is still usable. Runs once at
// startup; calling it again is a no-op returning the current snapshot.
func (c *Controller) Restore(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.state != StateRestoring || c.loading[formRestore] {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}
	c.loading[formRestore] = true
	c.mu.Unlock()
	defer c.endForm(formRestore)

	rec, err := c.store.Load(ctx)
	if err != nil {
		c.log.Warn("session load failed, starting unauthenticated", zap.Error(err))
		return c.finishRestore(nil, nil, nil, false)
	}
	if rec == nil {
		return c.finishRestore(nil, nil, nil, false)
	}

	if rec.Expired(c.now(), c.cfg.SessionTTL) {
		c.log.Info("persisted session expired",
			zap.Int64("savedAt", rec.Timestamp),
		)
		_ = c.store.Clear(ctx)
		return c.finishRestore(nil, nil, nil, true)
	}

	// Email-only sessions have no wallet to verify against.
	if rec.User.Address == "" {
		user := rec.User
		return c.finishRestore(&user, nil, nil, false)
	}

	outcome, provider, identity, err := c.verifier.Verify(ctx, rec)
	if err != nil {
		c.log.Warn("session verification failed", zap.Error(err))
		_ = c.store.Clear(ctx)
		return c.finishRestore(nil, nil, nil, true)
	}

	switch outcome {
	case OutcomeReconnected:
		user := rec.User
		user.ChainID = identity.ChainID
		return c.finishRestore(&user, provider, identity, false)
	case OutcomeMismatch:
		_ = c.store.Clear(ctx)
		return c.finishRestore(nil, nil, nil, true)
	default: // OutcomeNoProvider
		_ = c.store.Clear(ctx)
		return c.finishRestore(nil, nil, nil, true)
	}
}

func (c *Controller) finishRestore(user *models.AuthSession, provider wallet.Provider, identity *wallet.Identity, cleared bool) (Snapshot, error) {
	c.mu.Lock()
	if user != nil {
		c.session = user
		c.provider = provider
		c.identity = identity
		c.state = StateAuthenticated
		c.attachWatcherLocked()
	} else {
		c.state = StateWalletConnect
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if cleared {
		c.publish(events.EventSessionCleared, nil)
	}
	c.publish(events.EventAuthStateChanged, snap)
	return snap, nil
}

// ConnectWallet connects the chosen wallet and establishes a wallet-only
// session. When the wallet is not detected, the returned snapshot carries a
// handoff (deep link on mobile, install guidance on desktop) and the state
// does not change.
func (c *Controller) ConnectWallet(ctx context.Context, t wallet.Type, caps wallet.Capabilities, userAgent string) (Snapshot, error) {
	if t == wallet.TypeWalletConnect {
		return c.Snapshot(), ErrComingSoon
	}
	if t == wallet.TypeOther {
		return c.Snapshot(), fmt.Errorf("%w: unknown wallet type", ErrInvalidInput)
	}
	if err := c.beginForm(formConnect, StateWalletConnect); err != nil {
		return c.Snapshot(), err
	}
	defer c.endForm(formConnect)

	if !wallet.Detect(t, caps, userAgent) {
		h := wallet.NewHandoff(t, c.cfg.DappURL, wallet.IsMobileUA(userAgent), c.cfg.HandoffTimeout, c.now())
		c.mu.Lock()
		c.handoff = h
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, nil
	}

	provider, err := c.dialer.Dial(ctx, t)
	if err != nil {
		return c.Snapshot(), err
	}
	identity, err := provider.Connect(ctx)
	if err != nil {
		provider.Close()
		return c.Snapshot(), err
	}

	sess := walletOnlySession(identity, c.now())
	if err := c.store.Save(ctx, sess, string(t)); err != nil {
		// The live session still works this run; only silent restore is lost.
		c.log.Warn("session save failed", zap.Error(err))
	}

	c.mu.Lock()
	if !IsValidTransition(c.state, StateAuthenticated) {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		provider.Close()
		return snap, fmt.Errorf("%w: %s -> %s", ErrBadState, c.state, StateAuthenticated)
	}
	c.teardownWalletLocked()
	c.provider = provider
	c.identity = identity
	s := sess
	c.session = &s
	c.handoff = nil
	c.state = StateAuthenticated
	c.attachWatcherLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.log.Info("wallet connected",
		zap.String("walletType", string(t)),
		zap.String("address", identity.Address),
		zap.Int64("chainId", identity.ChainID),
	)
	c.publish(events.EventAuthStateChanged, snap)
	return snap, nil
}

// staleHandoffGrace bounds how long past the wait window a focus report is
// still trusted. Resolutions normally arrive right after the window fires.
const staleHandoffGrace = time.Minute

// ResolveHandoff settles the pending mobile deep-link handoff for the given
// wallet. The dashboard reports whether it still holds input focus after the
// wait window: retained focus means the wallet app never opened and the
// install prompt applies. Lost focus is a successful handoff even though the
// report lands after the deadline. Only a handoff abandoned long past the
// window fails regardless of focus.
func (c *Controller) ResolveHandoff(t wallet.Type, focused bool) (HandoffResolution, error) {
	c.mu.Lock()
	h := c.handoff
	if h == nil {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return HandoffResolution{Snapshot: snap}, fmt.Errorf("%w: no pending handoff", ErrBadState)
	}
	if !h.Matches(t) {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return HandoffResolution{Snapshot: snap}, fmt.Errorf("%w: pending handoff is for %s", ErrBadState, h.WalletType)
	}
	c.handoff = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	res := HandoffResolution{Snapshot: snap}
	if focused || h.Expired(c.now().Add(-staleHandoffGrace)) {
		res.Failed = true
		res.InstallURL = h.InstallURL
	}
	return res, nil
}

// ContinueToAccount moves from wallet selection to the account options step
// without connecting a wallet.
func (c *Controller) ContinueToAccount() (Snapshot, error) {
	return c.navigate(StateWalletConnect, StateAuthOptions)
}

// UpgradeAccount starts attaching a full account to a wallet-only session.
// The live wallet identity is kept so signup can link it.
func (c *Controller) UpgradeAccount() (Snapshot, error) {
	c.mu.Lock()
	if c.state != StateAuthenticated || c.session == nil || !c.session.CanUpgradeAccount {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("%w: session is not upgradeable", ErrBadState)
	}
	c.state = StateAuthOptions
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(events.EventAuthStateChanged, snap)
	return snap, nil
}

func (c *Controller) ChooseSignup() (Snapshot, error) {
	return c.navigate(StateAuthOptions, StateEmailSignup)
}

func (c *Controller) ChooseLogin() (Snapshot, error) {
	return c.navigate(StateAuthOptions, StateEmailLogin)
}

// Back returns to the previous step of the flow.
func (c *Controller) Back() (Snapshot, error) {
	c.mu.Lock()
	var to State
	switch c.state {
	case StateEmailSignup, StateEmailLogin:
		to = StateAuthOptions
	case StateAuthOptions:
		if c.session != nil {
			to = StateAuthenticated
		} else {
			to = StateWalletConnect
		}
	case StateProfile:
		to = StateAuthenticated
	default:
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("%w: nothing to go back to from %s", ErrBadState, c.state)
	}
	c.state = to
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(events.EventAuthStateChanged, snap)
	return snap, nil
}

// Signup creates an account and, when a wallet identity is connected,
// attempts to link it. A failed link never rolls the account back: the
// session comes up authenticated without a wallet and a warning is emitted.
func (c *Controller) Signup(ctx context.Context, email, password, username, bio string) (Snapshot, error) {
	if err := validateCredentials(email, password); err != nil {
		return c.Snapshot(), err
	}
	if err := c.beginForm(formSignup, StateEmailSignup); err != nil {
		return c.Snapshot(), err
	}
	defer c.endForm(formSignup)

	c.mu.Lock()
	identity := c.identity
	provider := c.provider
	c.mu.Unlock()

	if username == "" {
		if identity == nil {
			return c.Snapshot(), fmt.Errorf("%w: username required", ErrInvalidInput)
		}
		username = models.DefaultUsername(identity.Address)
	}

	// Проверяем доступность имени до создания аккаунта.
	available, err := c.backend.CheckUsernameAvailable(ctx, username)
	if err != nil {
		return c.Snapshot(), err
	}
	if !available {
		return c.Snapshot(), fmt.Errorf("username %q: %w", username, account.ErrUsernameTaken)
	}

	acct, err := c.backend.Signup(ctx, email, password, account.Profile{Username: username, Bio: bio})
	if err != nil {
		return c.Snapshot(), err
	}

	return c.commitAccountSession(ctx, acct.Email, acct.Username, provider, identity)
}

// Login authenticates against the account backend and, like Signup, links a
// connected wallet on a best-effort basis.
func (c *Controller) Login(ctx context.Context, email, password string) (Snapshot, error) {
	if err := validateCredentials(email, password); err != nil {
		return c.Snapshot(), err
	}
	if err := c.beginForm(formLogin, StateEmailLogin); err != nil {
		return c.Snapshot(), err
	}
	defer c.endForm(formLogin)

	c.mu.Lock()
	identity := c.identity
	provider := c.provider
	c.mu.Unlock()

	acct, err := c.backend.Login(ctx, email, password)
	if err != nil {
		return c.Snapshot(), err
	}

	return c.commitAccountSession(ctx, acct.Email, acct.Username, provider, identity)
}

// commitAccountSession builds the post-signup/login session. Linking is
// asymmetric on purpose: the account identity is already established, so a
// signing rejection or link conflict only costs the wallet binding.
func (c *Controller) commitAccountSession(ctx context.Context, email, username string, provider wallet.Provider, identity *wallet.Identity) (Snapshot, error) {
	sess := models.AuthSession{
		IsAuthenticated: true,
		AuthMethod:      models.AuthMethodEmail,
		Email:           email,
		Username:        username,
		CreatedAt:       c.now().UnixMilli(),
	}

	walletType := ""
	var linkErr error
	if identity != nil && provider != nil {
		linkErr = c.linker.Link(ctx, provider, c.backend, username, identity.Address)
		if linkErr == nil {
			sess.AuthMethod = models.AuthMethodLinked
			sess.Address = identity.Address
			sess.ChainID = identity.ChainID
			walletType = string(identity.WalletType)
		} else {
			c.log.Warn("wallet link failed, keeping account session", zap.Error(linkErr))
		}
	}

	if err := c.store.Save(ctx, sess, walletType); err != nil {
		c.log.Warn("session save failed", zap.Error(err))
	}

	c.mu.Lock()
	if !IsValidTransition(c.state, StateAuthenticated) {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("%w: %s -> %s", ErrBadState, c.state, StateAuthenticated)
	}
	if linkErr != nil {
		// No wallet in the session means no live wallet either.
		c.teardownWalletLocked()
	}
	s := sess
	c.session = &s
	c.handoff = nil
	c.state = StateAuthenticated
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if linkErr != nil {
		c.publish(events.EventAuthWarning, map[string]string{
			"reason": "wallet_link_failed",
			"detail": linkErr.Error(),
		})
	}
	c.publish(events.EventAuthStateChanged, snap)
	return snap, nil
}

func (c *Controller) OpenProfile() (Snapshot, error) {
	return c.navigate(StateAuthenticated, StateProfile)
}

// UpdateProfile pushes profile changes to the backend and refreshes the
// session's display fields.
func (c *Controller) UpdateProfile(ctx context.Context, fields account.ProfileUpdate) (Snapshot, error) {
	if err := c.beginForm(formProfile, StateProfile); err != nil {
		return c.Snapshot(), err
	}
	defer c.endForm(formProfile)

	acct, err := c.backend.UpdateProfile(ctx, fields)
	if err != nil {
		return c.Snapshot(), err
	}

	c.mu.Lock()
	if c.session != nil {
		c.session.Username = acct.Username
	}
	walletType := ""
	if c.identity != nil {
		walletType = string(c.identity.WalletType)
	}
	var sess *models.AuthSession
	if c.session != nil {
		s := *c.session
		sess = &s
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if sess != nil {
		if err := c.store.Save(ctx, *sess, walletType); err != nil {
			c.log.Warn("session save failed", zap.Error(err))
		}
	}
	c.publish(events.EventAuthStateChanged, snap)
	return snap, nil
}

// Logout tears the whole session down: persisted record, backend session,
// and live wallet connection.
func (c *Controller) Logout(ctx context.Context) (Snapshot, error) {
	c.mu.Lock()
	if c.state != StateAuthenticated && c.state != StateProfile {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("%w: logout from %s", ErrBadState, c.state)
	}
	c.teardownWalletLocked()
	c.session = nil
	c.handoff = nil
	c.state = StateWalletConnect
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		c.log.Warn("session clear failed", zap.Error(err))
	}
	c.backend.Logout()

	c.publish(events.EventSessionCleared, nil)
	c.publish(events.EventAuthStateChanged, snap)
	return snap, nil
}

// Close releases the live wallet connection. Called on gateway shutdown; the
// persisted session survives for the next run.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownWalletLocked()
}

func (c *Controller) navigate(from, to State) (Snapshot, error) {
	c.mu.Lock()
	if c.state != from || !IsValidTransition(from, to) {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap, fmt.Errorf("%w: %s -> %s", ErrBadState, c.state, to)
	}
	c.state = to
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.publish(events.EventAuthStateChanged, snap)
	return snap, nil
}

func (c *Controller) beginForm(name string, allowed ...State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading[name] {
		return ErrBusy
	}
	ok := false
	for _, s := range allowed {
		if c.state == s {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s in state %s", ErrBadState, name, c.state)
	}
	c.loading[name] = true
	return nil
}

func (c *Controller) endForm(name string) {
	c.mu.Lock()
	delete(c.loading, name)
	c.mu.Unlock()
}

// teardownWalletLocked drops the live wallet connection and any pending
// reconnect. Caller holds c.mu.
func (c *Controller) teardownWalletLocked() {
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
	if c.provider != nil {
		c.provider.Close()
		c.provider = nil
	}
	c.identity = nil
}

func (c *Controller) publish(eventType string, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.bus.Publish(ctx, events.StreamAuth, events.Event{Type: eventType, Payload: payload}); err != nil {
		c.log.Warn("auth event publish failed",
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}

func walletOnlySession(id *wallet.Identity, now time.Time) models.AuthSession {
	return models.AuthSession{
		IsAuthenticated:   true,
		AuthMethod:        models.AuthMethodWallet,
		WalletOnly:        true,
		Address:           id.Address,
		ChainID:           id.ChainID,
		Username:          models.DefaultUsername(id.Address),
		CanUpgradeAccount: true,
		CreatedAt:         now.UnixMilli(),
	}
}

func validateCredentials(email, password string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}
	return nil
}
