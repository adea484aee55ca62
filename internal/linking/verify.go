package linking

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxProofAge — максимальный возраст link proof (защита от replay).
	// Оригинальный клиент не ограничивал возраст подписи; здесь окно жёсткое.
	MaxProofAge = 5 * time.Minute

	// MaxClockSkew — допуск на рассинхронизацию часов клиента.
	MaxClockSkew = 1 * time.Minute
)

// ParseChallenge splits a link message back into its fields. The parse is
// strict: anything that does not match MessageTemplate exactly is rejected.
func ParseChallenge(message string) (username, address string, timestamp int64, err error) {
	lines := strings.Split(message, "\n")
	if len(lines) != 5 || lines[0] != "Link wallet to DeFi Staking Platform" || lines[1] != "" {
		return "", "", 0, fmt.Errorf("malformed link message")
	}

	username, ok := strings.CutPrefix(lines[2], "User: ")
	if !ok || username == "" {
		return "", "", 0, fmt.Errorf("malformed link message: user line")
	}
	address, ok = strings.CutPrefix(lines[3], "Wallet: ")
	if !ok || !common.IsHexAddress(address) {
		return "", "", 0, fmt.Errorf("malformed link message: wallet line")
	}
	tsStr, ok := strings.CutPrefix(lines[4], "Timestamp: ")
	if !ok {
		return "", "", 0, fmt.Errorf("malformed link message: timestamp line")
	}
	timestamp, err = strconv.ParseInt(tsStr, 10, 64)
	if err != nil || timestamp <= 0 {
		return "", "", 0, fmt.Errorf("malformed link message: timestamp value")
	}
	return username, address, timestamp, nil
}

// VerifyProof checks a link proof server-side.
//
// Алгоритм:
//  1. Парсим challenge и сверяем адрес в сообщении с заявленным.
//  2. Проверяем timestamp: не старше maxAge, не из будущего (skew 1 мин).
//  3. EIP-191: hash = keccak256("\x19Ethereum Signed Message:\n" + len + msg).
//  4. Восстанавливаем публичный ключ из подписи и сверяем адрес.
func VerifyProof(p Proof, maxAge time.Duration) error {
	if maxAge <= 0 {
		maxAge = MaxProofAge
	}

	_, msgAddress, ts, err := ParseChallenge(p.Message)
	if err != nil {
		return err
	}
	if !strings.EqualFold(msgAddress, p.Address) {
		return fmt.Errorf("address mismatch: message says %s, proof claims %s", msgAddress, p.Address)
	}

	issued := time.UnixMilli(ts)
	if time.Since(issued) > maxAge {
		return fmt.Errorf("proof expired: %s old", time.Since(issued).Round(time.Second))
	}
	if issued.After(time.Now().Add(MaxClockSkew)) {
		return fmt.Errorf("proof timestamp is in the future")
	}

	sig, err := hexutil.Decode(p.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("invalid signature size: %d", len(sig))
	}

	// personal_sign возвращает V как 27/28; recovery ожидает 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig = append([]byte(nil), sig...)
		sig[crypto.RecoveryIDOffset] -= 27
	}

	msg := []byte(p.Message)
	prefixed := append([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(msg))), msg...)
	hash := crypto.Keccak256(prefixed)

	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return fmt.Errorf("signature recovery failed: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*pub)
	if recovered != common.HexToAddress(p.Address) {
		return fmt.Errorf("invalid signature: recovered %s, want %s", recovered.Hex(), p.Address)
	}
	return nil
}
