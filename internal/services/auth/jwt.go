package auth

import (
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "jobswipe"

// JWTManager signs and verifies the HS256 access tokens the API accepts.
// The subject claim carries the opaque user id.
type JWTManager struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

type accessTokenClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func NewJWTManager(secret string, accessTTL time.Duration) *JWTManager {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &JWTManager{secret: []byte(secret), accessTTL: accessTTL, now: time.Now}
}

func (m *JWTManager) GenerateAccessToken(userID, role string) (string, time.Time, error) {
	switch {
	case len(m.secret) == 0:
		return "", time.Time{}, fmt.Errorf("jwt secret is empty")
	case strings.TrimSpace(userID) == "":
		return "", time.Time{}, fmt.Errorf("access token subject is empty")
	case !knownRole(role):
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}

	issuedAt := m.now().UTC()
	expiresAt := issuedAt.Add(m.accessTTL)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken returns ErrUnauthorized for any token that fails
// signature, issuer, expiry or role checks.
func (m *JWTManager) ParseAccessToken(raw string) (AccessClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(m.secret) == 0 {
		return AccessClaims{}, ErrUnauthorized
	}

	var claims accessTokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return AccessClaims{}, ErrUnauthorized
	}
	if strings.TrimSpace(claims.Subject) == "" || !knownRole(claims.Role) {
		return AccessClaims{}, ErrUnauthorized
	}

	return AccessClaims{
		UserID:    claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// An empty role is accepted; handlers decide ownership by user id.
func knownRole(role string) bool {
	switch role {
	case "", RoleSeeker, RoleEmployer:
		return true
	}
	return false
}
