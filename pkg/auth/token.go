package auth

import (
	"errors"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

// BearerHeader formats the Authorization header value for the STOMP CONNECT frame
// and REST calls.
func BearerHeader(token string) string {
	return "Bearer " + strings.TrimSpace(token)
}

// InspectToken reads the claims of a backend-issued token without verifying its
// signature; the backend remains the authority. Tokens that are not JWTs are
// reported as opaque. A JWT whose exp is not after now is rejected.
func InspectToken(tokenString string, now time.Time) (*TokenInfo, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenString), "Bearer "))
	if tokenString == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token is required")
	}
	if strings.Count(tokenString, ".") != 2 {
		return &TokenInfo{Opaque: true}, nil
	}

	claims := &SessionClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return &TokenInfo{Opaque: true}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "unreadable session token")
	}

	info := &TokenInfo{
		Subject: claims.Subject,
		Roles:   claims.Roles,
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		info.ExpiresAt = &exp
		if !exp.After(now) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session token expired").
				WithDetails(map[string]any{"expiredAt": exp.UTC().Format(time.RFC3339)})
		}
	}
	return info, nil
}
