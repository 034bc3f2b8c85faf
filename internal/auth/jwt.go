package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authentication required")
)

const (
	kindSession     = "session"
	kindImpersonate = "impersonate"
)

// Claims represents the claims of a signed cookie. Subject is the user the
// cookie speaks for: the logged-in user for a session, the impersonated user
// for an impersonation cookie.
type Claims struct {
	Kind string `json:"knd"`

	// AdminID is the admin who started an impersonation. Empty for sessions.
	AdminID string `json:"imp,omitempty"`

	jwt.RegisteredClaims
}

// Impersonation is a validated impersonation cookie.
type Impersonation struct {
	AdminID  string
	TargetID string
}

// CookieSigner signs and validates the session and impersonation cookies
// (HS256 tokens).
type CookieSigner struct {
	secretKey []byte
	ttl       time.Duration
	secure    bool
	now       func() time.Time
}

// NewCookieSigner creates a signer. secretKey should be a strong random
// string of at least 32 bytes; ttl is how long cookies remain valid.
func NewCookieSigner(secretKey string, ttl time.Duration, secure bool) *CookieSigner {
	return &CookieSigner{
		secretKey: []byte(secretKey),
		ttl:       ttl,
		secure:    secure,
		now:       time.Now,
	}
}

// TTL returns the lifetime of issued cookies.
func (s *CookieSigner) TTL() time.Duration {
	return s.ttl
}

func (s *CookieSigner) sign(claims *Claims) (string, error) {
	now := s.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.NotBefore = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// SignSession creates a session token for the given user.
func (s *CookieSigner) SignSession(userID string) (string, error) {
	return s.sign(&Claims{
		Kind:             kindSession,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	})
}

// SignImpersonation creates a token letting adminID act as targetID.
func (s *CookieSigner) SignImpersonation(adminID, targetID string) (string, error) {
	return s.sign(&Claims{
		Kind:             kindImpersonate,
		AdminID:          adminID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: targetID},
	})
}

// parse validates a token and checks it is of the wanted kind.
func (s *CookieSigner) parse(tokenString, kind string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			return s.secretKey, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateSession returns the user ID held by a session token.
func (s *CookieSigner) ValidateSession(tokenString string) (string, error) {
	claims, err := s.parse(tokenString, kindSession)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ValidateImpersonation returns the admin and target held by an impersonation token.
func (s *CookieSigner) ValidateImpersonation(tokenString string) (*Impersonation, error) {
	claims, err := s.parse(tokenString, kindImpersonate)
	if err != nil {
		return nil, err
	}
	if claims.AdminID == "" {
		return nil, ErrInvalidToken
	}
	return &Impersonation{AdminID: claims.AdminID, TargetID: claims.Subject}, nil
}
