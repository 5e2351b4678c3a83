// Package auth authenticates scribe callers. Two credentials are accepted
// on the Authorization header: the static shared bearer secret (compared in
// constant time), and short-lived HS256 session tokens minted from that
// secret for agents that prefer an expiring credential.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLen is the minimum acceptable length for the HS256 signing
// secret. 32 bytes = 256 bits of entropy.
const MinSecretLen = 32

// ErrSecretTooShort is returned when a secret does not meet MinSecretLen.
var ErrSecretTooShort = fmt.Errorf("auth: secret must be at least %d bytes", MinSecretLen)

// ErrBadCredential is returned when a presented token is neither the static
// secret nor a valid session token.
var ErrBadCredential = errors.New("auth: invalid credential")

// Claims defines the JWT claims for scribe agent sessions.
type Claims struct {
	jwt.RegisteredClaims
	AgentID string `json:"agent_id"`
}

// DeriveSecret turns an arbitrary operator-supplied secret string into a
// 32-byte HS256 key via SHA-256, satisfying MinSecretLen regardless of the
// input length.
func DeriveSecret(input string) []byte {
	sum := sha256.Sum256([]byte(input))
	return sum[:]
}

// ValidateSecret checks that secret is at least MinSecretLen bytes.
func ValidateSecret(secret []byte) error {
	if len(secret) < MinSecretLen {
		return ErrSecretTooShort
	}
	return nil
}

// EqualStatic reports whether the presented bearer value equals the
// configured static secret, in constant time over SHA-256 digests so the
// comparison length never leaks.
func EqualStatic(configured, presented string) bool {
	a := sha256.Sum256([]byte(configured))
	b := sha256.Sum256([]byte(presented))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// MintSession creates a signed session token for agentID.
func MintSession(secret []byte, agentID string, ttl time.Duration) (string, error) {
	if err := ValidateSecret(secret); err != nil {
		return "", err
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Subject:   agentID,
		},
		AgentID: agentID,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateSession parses and validates a session token, returning its
// claims. The signing method is pinned to HS256 to prevent algorithm
// confusion attacks.
func ValidateSession(secret []byte, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v (only HS256 allowed)", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrBadCredential
}
