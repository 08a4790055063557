// Package auth issues and validates the bearer tokens that gate the Remote
// ID ingestion endpoint.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")

	ErrBadIdentifier = errors.New("unusable identifier")
)

// maxIdentifierLen bounds the login identifier so it stays usable as a
// cache key component.
const maxIdentifierLen = 64

// Claims carries the authenticated sender identity.
type Claims struct {
	jwt.RegisteredClaims
}

type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue returns a signed token for the given sender identifier. The
// identifier must be non-empty printable ASCII of bounded length.
func (ti *TokenIssuer) Issue(identifier string) (string, error) {
	if err := validateIdentifier(identifier); err != nil {
		return "", err
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identifier,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ti.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// Validate parses and verifies a token, returning the sender identifier.
func (ti *TokenIssuer) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return ti.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}

func validateIdentifier(identifier string) error {
	if identifier == "" {
		return fmt.Errorf("%w: empty", ErrBadIdentifier)
	}
	if len(identifier) > maxIdentifierLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrBadIdentifier, maxIdentifierLen)
	}
	for i := 0; i < len(identifier); i++ {
		if identifier[i] < 0x21 || identifier[i] > 0x7E {
			return fmt.Errorf("%w: non-printable byte at offset %d", ErrBadIdentifier, i)
		}
	}
	return nil
}
