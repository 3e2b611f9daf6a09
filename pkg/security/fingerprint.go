package security

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const fingerprintBytes = 12

// TokenFingerprint returns a short stable digest of a bearer token, used where
// a session needs a key but the raw token must not be stored.
func TokenFingerprint(token string) string {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(trimmed))
	return hex.EncodeToString(sum[:fingerprintBytes])
}
