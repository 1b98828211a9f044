// Package auth issues and verifies access tokens, hashes passwords and keeps
// the list of revoked tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the identity behind an access token. The registered ID (jti)
// is what sign-out revokes.
type Claims struct {
	jwt.RegisteredClaims
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
}

// GenerateToken signs an HS256 token for the given identity.
func GenerateToken(uid, email, displayName string, secretKey []byte, validity time.Duration) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// ParseToken verifies signature and expiry and returns the claims.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
