package infra

import (
	"fmt"
	"time"

	"perpdesk/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// JWTVerifier validates HS256 access tokens issued by the account service.
// The subject claim carries the user id; expiry is mandatory. Issuance lives
// in the account service, this side only verifies.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier creates a verifier with the shared signing secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify checks the token signature and claims and returns the caller's user id.
func (v *JWTVerifier) Verify(token string) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed subject claim", domain.ErrUnauthorized)
	}
	return userID, nil
}

// SignToken issues a token the verifier accepts. Used by tests and local
// tooling; production tokens come from the account service.
func (v *JWTVerifier) SignToken(userID uuid.UUID, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	// HS256 signing over a byte-slice key cannot fail.
	signed, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	return signed
}
