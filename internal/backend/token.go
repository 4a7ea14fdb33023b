package backend

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer mints and verifies the HS256 bearer tokens the backend hands
// out at login and registration. The user id travels in the "uuid" claim,
// which is what the client's codec extracts.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("backend: JWT secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}, nil
}

func (i *TokenIssuer) Issue(now time.Time, userID string) (string, error) {
	claims := jwt.MapClaims{
		"uuid": userID,
		"iat":  jwt.NewNumericDate(now),
		"exp":  jwt.NewNumericDate(now.Add(i.ttl)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(i.secret)
}

// Verify checks signature and expiry and returns the user id.
func (i *TokenIssuer) Verify(raw string) (string, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}); err != nil {
		return "", err
	}

	uid, ok := claims["uuid"].(string)
	if !ok || uid == "" {
		return "", errors.New("backend: token carries no uuid claim")
	}
	return uid, nil
}
