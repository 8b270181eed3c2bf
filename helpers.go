package oneclick

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashToken returns the hex-encoded SHA-256 digest of a token. Repositories
// key stored links by this digest so raw tokens never appear in storage keys.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
