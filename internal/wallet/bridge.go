package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// EIP-1193 provider error codes.
const (
	codeUserRejected = 4001
	codeUnauthorized = 4100
)

// BridgeProvider speaks EIP-1193-shaped JSON-RPC to a wallet bridge over a
// websocket connection. Account/chain change notifications arrive on the
// "wallet" subscription namespace.
type BridgeProvider struct {
	walletType Type
	client     *rpc.Client
	log        *zap.Logger

	mu  sync.Mutex
	sub *rpc.ClientSubscription
}

func NewBridgeProvider(ctx context.Context, walletType Type, bridgeURL string, log *zap.Logger) (*BridgeProvider, error) {
	client, err := rpc.DialContext(ctx, bridgeURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrNetwork, bridgeURL, err)
	}
	return &BridgeProvider{walletType: walletType, client: client, log: log}, nil
}

func (p *BridgeProvider) Connect(ctx context.Context) (*Identity, error) {
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, translateConnectError(err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: no accounts exposed", ErrNoProvider)
	}

	chainID, err := p.ChainID(ctx)
	if err != nil {
		return nil, err
	}

	return &Identity{
		Address:    common.HexToAddress(accounts[0]).Hex(),
		ChainID:    chainID,
		WalletType: p.walletType,
		HasSigner:  true,
	}, nil
}

func (p *BridgeProvider) Accounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := p.client.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("%w: eth_accounts: %v", ErrNetwork, err)
	}
	return accounts, nil
}

func (p *BridgeProvider) ChainID(ctx context.Context) (int64, error) {
	var chainID hexutil.Uint64
	if err := p.client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		return 0, fmt.Errorf("%w: eth_chainId: %v", ErrNetwork, err)
	}
	return int64(chainID), nil
}

func (p *BridgeProvider) SignMessage(ctx context.Context, address, message string) (string, error) {
	var sig hexutil.Bytes
	err := p.client.CallContext(ctx, &sig, "personal_sign", hexutil.Encode([]byte(message)), address)
	if err != nil {
		var rpcErr rpc.Error
		if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected {
			return "", fmt.Errorf("%w: %v", ErrUserRejected, err)
		}
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return hexutil.Encode(sig), nil
}

// bridgeEvent is the notification payload on the wallet subscription.
type bridgeEvent struct {
	Event    string   `json:"event"` // "accountsChanged" / "chainChanged"
	Accounts []string `json:"accounts,omitempty"`
	ChainID  string   `json:"chainId,omitempty"` // hex quantity
}

func (p *BridgeProvider) Subscribe(onAccountsChanged func([]string), onChainChanged func(int64)) (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Replace, never stack: a second subscription set would double-deliver
	// account-change events.
	if p.sub != nil {
		p.sub.Unsubscribe()
		p.sub = nil
	}

	ch := make(chan bridgeEvent, 16)
	sub, err := p.client.Subscribe(context.Background(), "wallet", ch, "events")
	if err != nil {
		return nil, fmt.Errorf("%w: wallet_subscribe: %v", ErrNetwork, err)
	}
	p.sub = sub

	go func() {
		for {
			select {
			case ev, ok := <-ch:
				if !ok {
					return
				}
				switch ev.Event {
				case "accountsChanged":
					onAccountsChanged(ev.Accounts)
				case "chainChanged":
					id, err := hexutil.DecodeUint64(ev.ChainID)
					if err != nil {
						p.log.Warn("malformed chainChanged payload", zap.String("chain_id", ev.ChainID))
						continue
					}
					onChainChanged(int64(id))
				}
			case err := <-sub.Err():
				if err != nil {
					p.log.Debug("wallet subscription closed", zap.Error(err))
				}
				return
			}
		}
	}()

	stop := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.sub == sub {
			sub.Unsubscribe()
			p.sub = nil
		}
	}
	return stop, nil
}

func (p *BridgeProvider) Close() {
	p.mu.Lock()
	if p.sub != nil {
		p.sub.Unsubscribe()
		p.sub = nil
	}
	p.mu.Unlock()
	p.client.Close()
}

func translateConnectError(err error) error {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		switch rpcErr.ErrorCode() {
		case codeUserRejected:
			return fmt.Errorf("%w: %v", ErrUserRejected, err)
		case codeUnauthorized:
			return fmt.Errorf("%w: %v", ErrNoProvider, err)
		}
	}
	if strings.Contains(err.Error(), "connection refused") {
		return fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}
	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// Dialer opens bridge providers from configured per-wallet endpoints.
type Dialer struct {
	urls map[string]string
	log  *zap.Logger
}

func NewDialer(urls map[string]string, log *zap.Logger) *Dialer {
	return &Dialer{urls: urls, log: log}
}

func (d *Dialer) Dial(ctx context.Context, t Type) (Provider, error) {
	url := d.urls[string(t)]
	if url == "" {
		return nil, fmt.Errorf("%w: no bridge configured for %s", ErrNoProvider, t)
	}
	return NewBridgeProvider(ctx, t, url, d.log)
}
