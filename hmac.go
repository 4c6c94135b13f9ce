package auth

import (
	"crypto/hmac"
	"crypto/sha256"
)

// SignatureSize is the length of an HMAC-SHA256 digest
const SignatureSize = sha256.Size

// Signer computes a keyed digest over a message.
type Signer interface {
	Sign(message, secret []byte) ([]byte, error)
}

// SignerFunc adapts a function into a Signer.
type SignerFunc func(message, secret []byte) ([]byte, error)

// Sign satisfies the Signer interface.
func (f SignerFunc) Sign(message, secret []byte) ([]byte, error) {
	if f == nil {
		return nil, ErrCrypto
	}
	return f(message, secret)
}

// HMACSigner signs with HMAC-SHA256
type HMACSigner struct{}

// Sign returns the 32 byte HMAC-SHA256 of message keyed by secret.
func (HMACSigner) Sign(message, secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrCrypto
	}

	mac := hmac.New(sha256.New, secret)
	if _, err := mac.Write(message); err != nil {
		return nil, ErrCrypto
	}
	return mac.Sum(nil), nil
}

// SignatureEqual compares two signatures in constant time.
func SignatureEqual(a, b []byte) bool {
	return hmac.Equal(a, b)
}
