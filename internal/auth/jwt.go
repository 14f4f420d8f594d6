// Package auth issues and verifies the signed topic-key tokens that gate
// put-data ingestion. A topic's key is a JWT binding its UUID as a claim,
// rather than a bare UUID the descriptor could simply restate, hardening
// the bad_key check against a client guessing or copying another topic's
// identifier.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims binds a topic's identity to a signed token. TopicID is carried in
// the standard "sub" (Subject) claim as the UUID's canonical string form.
type Claims struct {
	jwt.RegisteredClaims
}

// TopicID parses the subject claim back into a UUID.
func (c *Claims) TopicID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// TokenService issues and verifies topic-key JWTs.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a token service with the given HMAC secret.
// Topic keys never expire: a topic's key is valid for the topic's entire
// lifetime, not a login session.
func NewTokenService(secret []byte) *TokenService {
	return &TokenService{secret: secret}
}

// Issue creates a signed key for topicID.
func (ts *TokenService) Issue(topicID uuid.UUID) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  topicID.String(),
			IssuedAt: jwt.NewNumericDate(time.Now().UTC()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("sign topic key: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a topic key, returning the bound topic UUID.
func (ts *TokenService) Verify(key string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(key, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse topic key: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid topic key claims")
	}
	return claims.TopicID()
}
