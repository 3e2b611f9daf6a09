package auth

import (
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, claims SessionClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestInspectTokenReadsClaims(t *testing.T) {
	now := time.Now().UTC()
	token := signToken(t, SessionClaims{
		Roles: []string{"ROLE_USER"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "diner@forkfinderz.test",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})

	info, err := InspectToken("Bearer "+token, now)
	if err != nil {
		t.Fatalf("inspect token: %v", err)
	}
	if info.Opaque {
		t.Fatal("expected jwt to be inspected")
	}
	if info.Subject != "diner@forkfinderz.test" {
		t.Fatalf("unexpected subject %q", info.Subject)
	}
	if len(info.Roles) != 1 || info.Roles[0] != "ROLE_USER" {
		t.Fatalf("unexpected roles %v", info.Roles)
	}
	if info.ExpiresIn(now) <= 59*time.Minute {
		t.Fatalf("unexpected remaining lifetime %v", info.ExpiresIn(now))
	}
}

func TestInspectTokenRejectsExpired(t *testing.T) {
	now := time.Now().UTC()
	token := signToken(t, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "diner",
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	})

	_, err := InspectToken(token, now)
	if err == nil {
		t.Fatal("expected expired token to be rejected")
	}
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized code, got %v", err)
	}
}

func TestInspectTokenOpaqueAndEmpty(t *testing.T) {
	info, err := InspectToken("not-a-jwt", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.Opaque || info.ExpiresIn(time.Now()) != 0 {
		t.Fatalf("expected opaque token info, got %+v", info)
	}

	if _, err := InspectToken("   ", time.Now()); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for empty token, got %v", err)
	}
}

func TestBearerHeader(t *testing.T) {
	if got := BearerHeader(" abc "); got != "Bearer abc" {
		t.Fatalf("unexpected header %q", got)
	}
}
