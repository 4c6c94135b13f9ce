package auth

import (
	"encoding/base64"
	"strings"
)

// EncodeSegment encodes b with the URL safe base64 alphabet and no padding.
func EncodeSegment(b []byte) (string, error) {
	if len(b) == 0 {
		return "", ErrEmptySegment
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeSegment reverses EncodeSegment. Padding is optional.
func DecodeSegment(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	if s == "" {
		return nil, ErrDecode
	}

	if !isBase64URL(s) {
		return nil, ErrDecode
	}

	b, err := base64.RawURLEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, ErrDecode
	}
	return b, nil
}

func isBase64URL(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'A' && c <= 'Z') ||
			(c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') ||
			c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}
