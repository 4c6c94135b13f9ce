package auth

import (
	"crypto/rand"
	"io"
	"math/big"
)

const (
	// SecretLength is the length of generated secrets
	SecretLength = 32
	// MinSecretLength is the shortest secret the store accepts
	MinSecretLength = 32

	printableStart = 33
	printableRange = 94
)

// Secret is symmetric key material. It is printable ASCII so operators can
// handle it as text; String never reveals it.
type Secret string

// Bytes returns the key bytes
func (s Secret) Bytes() []byte {
	return []byte(s)
}

// Reveal returns the secret text. Use it only to hand the secret to another
// process.
func (s Secret) Reveal() string {
	return string(s)
}

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[redacted]"
}

// GoString keeps %#v from leaking the secret
func (s Secret) GoString() string {
	return s.String()
}

// MarshalText keeps encoders from leaking the secret
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// GenerateSecret returns a new secret of SecretLength printable characters
// drawn from crypto/rand.
func GenerateSecret() (Secret, error) {
	return generateSecret(rand.Reader)
}

func generateSecret(r io.Reader) (Secret, error) {
	buf := make([]byte, SecretLength)
	max := big.NewInt(printableRange)
	for i := range buf {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", ErrRandomSource
		}
		buf[i] = byte(printableStart + n.Int64())
	}
	return Secret(buf), nil
}
