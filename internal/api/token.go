package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what the client reads from a bearer token. The signature is
// not verified here; the server checks it on every request.
type TokenInfo struct {
	Subject   string
	Role      Role
	ExpiresAt time.Time
}

type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// InspectToken decodes the claims of a JWT without verifying it.
func InspectToken(token string) (*TokenInfo, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("api: inspect token: %w", err)
	}
	info := &TokenInfo{Subject: claims.Subject, Role: Role(claims.Role)}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// Expired reports whether the token has an expiry at or before now.
func (t *TokenInfo) Expired(now time.Time) bool {
	return t != nil && !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}
