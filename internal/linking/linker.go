package linking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MessageTemplate is the deterministic challenge the wallet signs. The
// embedded timestamp (epoch millis) makes each challenge unique and bounds
// the replay window on the verifying side.
const MessageTemplate = "Link wallet to DeFi Staking Platform\n\nUser: %s\nWallet: %s\nTimestamp: %d"

// Challenge is a built, not-yet-signed link message.
type Challenge struct {
	Message   string
	Username  string
	Address   string
	Timestamp int64
}

// Proof is the signed challenge submitted to the account backend. It is
// produced once per linking operation and not retained afterwards: an old
// proof must not be replayable.
type Proof struct {
	Message   string `json:"message"`
	Signature string `json:"signature"` // 0x-prefixed hex
	Address   string `json:"address"`
}

// Signer is the signing capability of a connected wallet provider.
type Signer interface {
	SignMessage(ctx context.Context, address, message string) (string, error)
}

// Submitter hands a proof to the account backend, which is the sole
// authority on whether the wallet is already bound elsewhere.
type Submitter interface {
	LinkWalletAddress(ctx context.Context, proof Proof) error
}

// Linker runs the challenge/response protocol proving control of a wallet
// address and binding it to an account identity.
type Linker struct {
	log *zap.Logger
	now func() time.Time
}

func NewLinker(log *zap.Logger) *Linker {
	return &Linker{log: log, now: time.Now}
}

func (l *Linker) BuildChallenge(username, address string) Challenge {
	ts := l.now().UnixMilli()
	return Challenge{
		Message:   fmt.Sprintf(MessageTemplate, username, address, ts),
		Username:  username,
		Address:   address,
		Timestamp: ts,
	}
}

// Link executes the full sequence: build challenge, sign, submit. The caller
// must already hold a valid account identity — linking is attempted only
// after a successful signup or login, and a failure here never rolls the
// account back.
func (l *Linker) Link(ctx context.Context, signer Signer, submit Submitter, username, address string) error {
	ch := l.BuildChallenge(username, address)

	sig, err := signer.SignMessage(ctx, address, ch.Message)
	if err != nil {
		return fmt.Errorf("sign link challenge: %w", err)
	}

	proof := Proof{Message: ch.Message, Signature: sig, Address: address}
	if err := submit.LinkWalletAddress(ctx, proof); err != nil {
		return fmt.Errorf("submit link proof: %w", err)
	}

	l.log.Info("wallet linked",
		zap.String("username", username),
		zap.String("address", address),
	)
	return nil
}
