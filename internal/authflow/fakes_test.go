package authflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/defi-staking/gateway/internal/account"
	"github.com/defi-staking/gateway/internal/config"
	"github.com/defi-staking/gateway/internal/events"
	"github.com/defi-staking/gateway/internal/linking"
	"github.com/defi-staking/gateway/internal/models"
	"github.com/defi-staking/gateway/internal/session"
	"github.com/defi-staking/gateway/internal/wallet"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeProvider struct {
	walletType wallet.Type
	address    string
	chainID    int64

	mu         sync.Mutex
	accounts   []string
	connectErr error
	signErr    error
	closed     bool
	signedMsgs []string

	// Optional connect gating for concurrency tests.
	connectStarted chan struct{}
	connectRelease chan struct{}

	onAccounts func([]string)
	onChain    func(int64)
}

func (p *fakeProvider) Connect(ctx context.Context) (*wallet.Identity, error) {
	if p.connectStarted != nil {
		close(p.connectStarted)
		p.connectStarted = nil
	}
	if p.connectRelease != nil {
		select {
		case <-p.connectRelease:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.connectErr != nil {
		return nil, p.connectErr
	}
	return &wallet.Identity{
		Address:    p.address,
		ChainID:    p.chainID,
		WalletType: p.walletType,
		HasSigner:  true,
	}, nil
}

func (p *fakeProvider) Accounts(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.accounts...), nil
}

func (p *fakeProvider) ChainID(context.Context) (int64, error) {
	return p.chainID, nil
}

func (p *fakeProvider) SignMessage(_ context.Context, _, message string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.signErr != nil {
		return "", p.signErr
	}
	p.signedMsgs = append(p.signedMsgs, message)
	return "0xfakesignature", nil
}

func (p *fakeProvider) Subscribe(onAccountsChanged func([]string), onChainChanged func(int64)) (func(), error) {
	p.mu.Lock()
	p.onAccounts = onAccountsChanged
	p.onChain = onChainChanged
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.onAccounts = nil
		p.onChain = nil
		p.mu.Unlock()
	}, nil
}

func (p *fakeProvider) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakeProvider) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakeProvider) fireAccountsChanged(accounts []string) {
	p.mu.Lock()
	fn := p.onAccounts
	p.accounts = accounts
	p.mu.Unlock()
	if fn != nil {
		fn(accounts)
	}
}

func (p *fakeProvider) fireChainChanged(chainID int64) {
	p.mu.Lock()
	fn := p.onChain
	p.mu.Unlock()
	if fn != nil {
		fn(chainID)
	}
}

type fakeDialer struct {
	mu       sync.Mutex
	provider *fakeProvider
	err      error
	dials    int
}

func (d *fakeDialer) Dial(_ context.Context, t wallet.Type) (wallet.Provider, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.err != nil {
		return nil, d.err
	}
	if d.provider == nil {
		return nil, wallet.ErrNoProvider
	}
	return d.provider, nil
}

type fakeStore struct {
	mu     sync.Mutex
	rec    *session.Record
	saves  int
	clears int
	now    func() time.Time
}

func (s *fakeStore) Save(_ context.Context, user models.AuthSession, walletType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	s.rec = &session.Record{User: user, Timestamp: now().UnixMilli(), WalletType: walletType}
	s.saves++
	return nil
}

func (s *fakeStore) Load(context.Context) (*session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, nil
	}
	cp := *s.rec
	return &cp, nil
}

func (s *fakeStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	s.clears++
	return nil
}

func (s *fakeStore) record() *session.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil
	}
	cp := *s.rec
	return &cp
}

type fakeBackend struct {
	mu            sync.Mutex
	current       *models.Account
	signupErr     error
	loginErr      error
	linkErr       error
	usernameTaken bool
	availChecks   int
	linked        []string
	logouts       int
}

func (b *fakeBackend) Signup(_ context.Context, email, _ string, profile account.Profile) (*models.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.signupErr != nil {
		return nil, b.signupErr
	}
	acct := &models.Account{ID: uuid.New(), Email: email, Username: profile.Username}
	b.current = acct
	return acct, nil
}

func (b *fakeBackend) Login(_ context.Context, email, _ string) (*models.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loginErr != nil {
		return nil, b.loginErr
	}
	acct := &models.Account{ID: uuid.New(), Email: email, Username: "existing_user"}
	b.current = acct
	return acct, nil
}

func (b *fakeBackend) UpdateProfile(_ context.Context, fields account.ProfileUpdate) (*models.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil, account.ErrUnauthenticated
	}
	if fields.Username != nil {
		b.current.Username = *fields.Username
	}
	if fields.Bio != nil {
		b.current.Bio = fields.Bio
	}
	cp := *b.current
	return &cp, nil
}

func (b *fakeBackend) LinkWalletAddress(_ context.Context, proof linking.Proof) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.linkErr != nil {
		return b.linkErr
	}
	b.linked = append(b.linked, proof.Address)
	if b.current != nil {
		addr := proof.Address
		b.current.WalletAddress = &addr
	}
	return nil
}

func (b *fakeBackend) CheckUsernameAvailable(context.Context, string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.availChecks++
	return !b.usernameTaken, nil
}

func (b *fakeBackend) CurrentAccount() *models.Account {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return nil
	}
	cp := *b.current
	return &cp
}

func (b *fakeBackend) Logout() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = nil
	b.logouts++
}

func (b *fakeBackend) logoutCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logouts
}

type fixture struct {
	ctrl     *Controller
	store    *fakeStore
	backend  *fakeBackend
	dialer   *fakeDialer
	provider *fakeProvider
	bus      *events.MemoryBus
	events   <-chan events.Event
}

func newFixture(t *testing.T, provider *fakeProvider, rec *session.Record) *fixture {
	t.Helper()

	cfg := &config.Config{
		SessionTTL:     24 * time.Hour,
		ReconnectDelay: 10 * time.Millisecond,
		HandoffTimeout: 3 * time.Second,
		DappURL:        "http://localhost:5173",
	}
	log := zap.NewNop()
	store := &fakeStore{rec: rec}
	backend := &fakeBackend{}
	dialer := &fakeDialer{provider: provider}
	bus := events.NewMemoryBus(log)

	ch, cancel, err := bus.Subscribe(context.Background(), events.StreamAuth)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(cancel)

	ctrl := NewController(cfg, store, backend, dialer, NewVerifier(dialer, log), linking.NewLinker(log), bus, log)
	t.Cleanup(ctrl.Close)

	return &fixture{
		ctrl:     ctrl,
		store:    store,
		backend:  backend,
		dialer:   dialer,
		provider: provider,
		bus:      bus,
		events:   ch,
	}
}

// waitEvent drains the event stream until the wanted type shows up.
func (f *fixture) waitEvent(t *testing.T, eventType string) events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-f.events:
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", eventType)
		}
	}
}

// waitState polls until the controller reaches the wanted state.
func (f *fixture) waitState(t *testing.T, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := f.ctrl.Snapshot()
		if snap.State == want {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, got %s", want, f.ctrl.Snapshot().State)
	return Snapshot{}
}

func desktopMetaMaskCaps() wallet.Capabilities {
	return wallet.Capabilities{Injected: true, IsMetaMask: true, HasRequest: true}
}

const desktopUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Chrome/120.0"

func newMetaMaskProvider(address string, chainID int64) *fakeProvider {
	return &fakeProvider{
		walletType: wallet.TypeMetaMask,
		address:    address,
		chainID:    chainID,
		accounts:   []string{address},
	}
}
