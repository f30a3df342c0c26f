// Package auth issues and verifies dashboard session tokens. The
// dashboard has a single operator account; marketplace accounts are
// authenticated separately through the OAuth link flow.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sellerhub/backend/internal/pkg/errors"
)

const operatorSubject = "operator"

// Claims are the dashboard session claims
type Claims struct {
	jwt.RegisteredClaims
}

// VerifyPassword compares the login password against the stored bcrypt
// hash
func VerifyPassword(password, passwordHash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)); err != nil {
		return errors.Unauthorized("invalid credentials")
	}
	return nil
}

// MintSession issues a signed session token for the operator
func MintSession(secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operatorSubject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Internal("failed to sign session token", err)
	}
	return signed, nil
}

// ParseClaims verifies a session token and returns its claims
func ParseClaims(tokenStr, secret string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || claims.Subject != operatorSubject {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
