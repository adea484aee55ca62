package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestGenerateAndParseJWT(t *testing.T) {
	id := uuid.New()
	token, err := GenerateJWT(&id, "0x1111111111111111111111111111111111111111", "linked", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if claims.AccountID == nil || *claims.AccountID != id {
		t.Fatalf("accountID = %v, want %s", claims.AccountID, id)
	}
	if claims.Address != "0x1111111111111111111111111111111111111111" || claims.Method != "linked" {
		t.Fatalf("claims = %+v", claims)
	}
	if claims.Issuer != "defi-staking-gateway" {
		t.Fatalf("issuer = %s", claims.Issuer)
	}
}

func TestParseJWTWalletOnlyClaims(t *testing.T) {
	token, err := GenerateJWT(nil, "0x2222222222222222222222222222222222222222", "wallet", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatal(err)
	}
	if claims.AccountID != nil {
		t.Fatal("wallet-only token must carry no account id")
	}
}

func TestParseJWTWrongSecret(t *testing.T) {
	token, _ := GenerateJWT(nil, "", "wallet", "secret", time.Hour)
	if _, err := ParseJWT(token, "other-secret"); err == nil {
		t.Fatal("wrong secret accepted")
	}
}

func TestParseJWTExpired(t *testing.T) {
	token, _ := GenerateJWT(nil, "", "wallet", "secret", -time.Minute)
	if _, err := ParseJWT(token, "secret"); err == nil {
		t.Fatal("expired token accepted")
	}
}
