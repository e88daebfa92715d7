package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"io"
	"log/slog"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

const signingKeyInfo = "stickerdoko admin token signing key"

// Secret holds the process-wide administrative secret. Only a digest and a
// derived signing key are kept; the plain value cannot be printed or logged.
type Secret struct {
	digest     [blake2b.Size256]byte
	signingKey []byte
}

// NewSecret derives the comparison digest and the admin token signing key
func NewSecret(plain string) *Secret {
	s := &Secret{digest: blake2b.Sum256([]byte(plain))}

	s.signingKey = make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(plain), nil, []byte(signingKeyInfo))
	if _, err := io.ReadFull(kdf, s.signingKey); err != nil {
		// hkdf only fails after 255*32 bytes of output
		panic(err)
	}
	return s
}

// Matches reports whether candidate is exactly the secret. Both sides are
// digested first so the comparison takes the same time for any length.
func (s *Secret) Matches(candidate string) bool {
	d := blake2b.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(s.digest[:], d[:]) == 1
}

// SigningKey returns the HMAC key for admin tokens
func (s *Secret) SigningKey() []byte {
	return s.signingKey
}

func (s *Secret) String() string { return "[redacted]" }

// LogValue keeps the secret out of structured logs
func (s *Secret) LogValue() slog.Value { return slog.StringValue("[redacted]") }
