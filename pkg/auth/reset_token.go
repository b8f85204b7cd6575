package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const resetPurpose = "password_reset"

// DefaultResetTokenTTL bounds how long an emailed reset link stays usable.
const DefaultResetTokenTTL = 30 * time.Minute

var ErrInvalidResetToken = errors.New("invalid or expired reset token")

// ResetTokenSigner issues and validates single-purpose password-reset
// tokens. Tokens are HS256 JWTs carrying the user ID as subject.
type ResetTokenSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewResetTokenSigner builds a signer. A zero ttl uses the default.
func NewResetTokenSigner(secret string, ttl time.Duration) (*ResetTokenSigner, error) {
	if secret == "" {
		return nil, errors.New("reset token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &ResetTokenSigner{secret: []byte(secret), ttl: ttl}, nil
}

// Sign issues a reset token for the given user ID.
func (s *ResetTokenSigner) Sign(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("user id required")
	}
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"sub":     userID,
		"purpose": resetPurpose,
		"iat":     now.Unix(),
		"exp":     now.Add(s.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates a reset token and returns the user ID it was issued for.
func (s *ResetTokenSigner) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidResetToken
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", ErrInvalidResetToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidResetToken
	}
	if purpose, _ := claims["purpose"].(string); purpose != resetPurpose {
		return "", ErrInvalidResetToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrInvalidResetToken
	}
	return sub, nil
}
