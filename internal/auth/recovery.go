package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// RecoveryTokenTTL is how long an issued recovery token stays redeemable.
const RecoveryTokenTTL = 15 * time.Minute

// NewRecoveryToken generates a single-use password-recovery token.
//
// It returns the raw token (20 random bytes, hex-encoded) and its SHA-256
// digest. Only the digest is ever persisted; the raw value exists exactly
// once, in the channel message delivered to the account holder. Redemption
// re-derives the digest from the presented raw token with HashRecoveryToken.
func NewRecoveryToken() (raw, digest string, err error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("auth: generating recovery token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, HashRecoveryToken(raw), nil
}

// HashRecoveryToken returns the hex-encoded SHA-256 digest of a raw recovery
// token, the form in which tokens are stored and looked up.
func HashRecoveryToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
