package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/forkfinderz-realtime/pkg/security"
)

func TestTokenFingerprintIsStable(t *testing.T) {
	a := security.TokenFingerprint("opaque-token")
	b := security.TokenFingerprint("  opaque-token ")
	if a == "" || a != b {
		t.Fatalf("expected stable fingerprint, got %q and %q", a, b)
	}
	if len(a) != 24 {
		t.Fatalf("expected 24 hex chars, got %d", len(a))
	}
	if strings.Contains(a, "opaque") {
		t.Fatal("fingerprint must not leak the token")
	}
}

func TestTokenFingerprintDiffers(t *testing.T) {
	if security.TokenFingerprint("a") == security.TokenFingerprint("b") {
		t.Fatal("different tokens should not collide")
	}
	if security.TokenFingerprint("   ") != "" {
		t.Fatal("blank token should have no fingerprint")
	}
}
