// token issues and verifies the signed, time-limited credentials used for
// email confirmation and password reset. Tokens are stateless: nothing is
// persisted, and rotating the signing secret invalidates every token already
// in flight.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purposes bind a token to a single action so a confirmation token can never
// be replayed as a password reset and vice versa.
const (
	PurposeConfirmUser   = "confirm_user"
	PurposeResetPassword = "reset_password"
)

// Service signs and verifies tokens with a fixed secret and expiry window.
// The secret is injected at construction, never read from ambient state.
type Service struct {
	secret []byte
	ttl    time.Duration
}

func NewService(secret string, ttl time.Duration) *Service {
	return &Service{secret: []byte(secret), ttl: ttl}
}

// Generate produces an opaque token binding userID to purpose, valid for the
// service's expiry window.
func (s *Service) Generate(userID string, purpose string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":     userID,
		"purpose": purpose,
		"iat":     now.Unix(),
		"exp":     now.Add(s.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify reports whether tok is a currently valid token issued for userID
// and purpose. Every failure mode, signature mismatch, expiry, identity
// mismatch or malformed input, collapses to false so callers cannot leak
// which one occurred.
func (s *Service) Verify(userID string, purpose string, tok string) bool {
	parsed, err := jwt.Parse(
		tok,
		func(t *jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return false
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return false
	}
	return claims["sub"] == userID && claims["purpose"] == purpose
}
