package devices

import (
	"crypto/rand"
	"encoding/base32"
)

// tokenBytes gives 160 bits of entropy, comfortably above the 128-bit
// floor required for device credentials.
const tokenBytes = 20

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// NewToken generates a cryptographically random device token encoded as
// a fixed-length (32 character) alphanumeric string.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return tokenEncoding.EncodeToString(buf), nil
}
