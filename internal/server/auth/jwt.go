// Package auth mints and verifies the bearer credentials handed to clients.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/opacity/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the credential payload: the client id and nothing else that
// the service interprets.
type Claims struct {
	jwt.RegisteredClaims
	ClientID string `json:"cid"`
}

// GenerateToken signs a credential for clientID. A zero validity produces
// a credential without expiry.
func GenerateToken(clientID string, secretKey []byte, validity time.Duration) (string, error) {
	claims := Claims{ClientID: clientID}
	if validity != 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(validity))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
}

// ParseClientID verifies the token and returns its client id. Any failure,
// including a payload without a client id, is common.ErrInvalidToken.
func ParseClientID(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.ClientID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.ClientID, nil
}
