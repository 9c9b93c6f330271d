// Package reset generates single-use password-reset tokens. Only the sha256
// digest of a token is ever persisted; the raw value travels out-of-band to
// the account owner. A fixed digest (rather than an adaptive hash) is required
// because consumption looks the record up BY digest in a single conditional
// update.
package reset

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const rawLen = 32

// New returns a fresh raw token and its storable digest. It fails only if the
// OS entropy source is unavailable.
func New() (raw, digest string, err error) {
	buf := make([]byte, rawLen)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("read entropy: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, Digest(raw), nil
}

// Digest recomputes the stored form of a raw token.
func Digest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
