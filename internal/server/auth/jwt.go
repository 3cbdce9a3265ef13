// Package auth implements the token and password primitives behind the
// identity boundary: HS256 access tokens carrying the identity key as the
// subject claim, and argon2id password hashing.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vyapaars/syncledger/internal/common"
)

// GenerateToken mints an HS256 token with the identity key as subject and an
// expiry of now+validity.
func GenerateToken(identityKey string, secretKey []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   identityKey,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetIdentityKeyFromToken validates the token and returns its subject claim.
// Signature mismatch, expiry, a non-HS256 algorithm, and a missing subject all
// come back as common.ErrInvalidToken; callers collapse them into a single
// unauthenticated outcome.
func GetIdentityKeyFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", common.ErrInvalidToken
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
