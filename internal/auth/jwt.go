package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims — JWT claims выданные шлюзом после успешной аутентификации.
type Claims struct {
	AccountID *uuid.UUID `json:"account_id,omitempty"`
	Address   string     `json:"address,omitempty"`
	Method    string     `json:"method"`
	jwt.RegisteredClaims
}

// GenerateJWT mints an HS256 token for the authenticated session. Wallet-only
// sessions carry an address and no account id; email sessions the reverse;
// linked sessions carry both.
func GenerateJWT(accountID *uuid.UUID, address, method, secret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		AccountID: accountID,
		Address:   address,
		Method:    method,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "defi-staking-gateway",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseJWT validates the token signature and expiry and returns the claims.
func ParseJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
