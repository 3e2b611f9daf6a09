package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the subset of the backend-issued bearer token the client reads.
type SessionClaims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// TokenInfo summarizes a bearer token for logging and pre-connect checks.
type TokenInfo struct {
	Subject   string
	Roles     []string
	ExpiresAt *time.Time
	Opaque    bool
}

// ExpiresIn returns the remaining lifetime, or zero when unknown or elapsed.
func (t TokenInfo) ExpiresIn(now time.Time) time.Duration {
	if t.ExpiresAt == nil {
		return 0
	}
	if d := t.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
