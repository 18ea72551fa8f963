package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = 24 * time.Hour

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("token secret is not configured")
)

// AuthService issues and verifies the HS256 bearer tokens that let remote
// clients send commands when writes are restricted to localhost.
type AuthService struct {
	secret []byte
}

func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(strings.TrimSpace(secret))}
}

// Claims defines JWT claims
type Claims struct {
	jwt.RegisteredClaims
}

// Enabled reports whether a secret is configured.
func (s *AuthService) Enabled() bool { return len(s.secret) > 0 }

// IssueToken returns a signed token for subject, valid for ttl (a day if ttl <= 0).
func (s *AuthService) IssueToken(subject string, ttl time.Duration) (string, error) {
	if !s.Enabled() {
		return "", ErrNoSecret
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	return token.SignedString(s.secret)
}

// ParseToken verifies accessToken and returns its subject.
func (s *AuthService) ParseToken(accessToken string) (string, error) {
	if !s.Enabled() {
		return "", ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(accessToken, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
