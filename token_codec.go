package auth

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

const (
	// Algorithm is the only supported signing algorithm
	Algorithm = "HS256"
	// TokenType is the only supported token type
	TokenType = "JWT"

	// HeaderJSON is the header every token carries
	HeaderJSON = `{"alg":"HS256","typ":"JWT"}`
	// EncodedHeader is HeaderJSON base64url encoded
	EncodedHeader = "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"
)

// ParsedToken is a token split into its parts. The claims have not been
// authenticated yet.
type ParsedToken struct {
	Header    string
	Payload   string
	Signature string
	Claims    Claims
}

// SigningInput returns "<header>.<payload>", the bytes covered by the signature
func (p *ParsedToken) SigningInput() string {
	return p.Header + "." + p.Payload
}

// Codec builds, splits and checks tokens.
type Codec struct {
	signer Signer
}

// CodecOption customizes a Codec
type CodecOption func(*Codec)

// WithSigner replaces the HMAC-SHA256 signer.
func WithSigner(signer Signer) CodecOption {
	return func(c *Codec) {
		if signer != nil {
			c.signer = signer
		}
	}
}

// NewCodec returns a Codec that signs with HMAC-SHA256
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{signer: HMACSigner{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Build serializes, encodes and signs claims with secret.
func (c *Codec) Build(claims Claims, secret Secret) (string, error) {
	payload, err := claims.MarshalJSON()
	if err != nil {
		return "", ErrMalformedClaims
	}

	encodedPayload, err := EncodeSegment(payload)
	if err != nil {
		return "", err
	}

	message := EncodedHeader + "." + encodedPayload

	sig, err := c.signer.Sign([]byte(message), secret.Bytes())
	if err != nil {
		return "", err
	}

	encodedSig, err := EncodeSegment(sig)
	if err != nil {
		return "", ErrCrypto
	}

	return message + "." + encodedSig, nil
}

// ParseUnverified splits token, checks the header and decodes the claims.
// It does not check the signature: callers use the returned secret id to
// pick the key for VerifySignature.
func (c *Codec) ParseUnverified(token string) (*ParsedToken, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}

	header, payload, signature := parts[0], parts[1], parts[2]
	if header == "" || payload == "" || signature == "" {
		return nil, ErrMalformedToken
	}

	if err := verifyHeader(header); err != nil {
		return nil, err
	}

	rawClaims, err := DecodeSegment(payload)
	if err != nil {
		return nil, ErrMalformedClaims
	}

	claims, err := decodeClaims(rawClaims)
	if err != nil {
		return nil, err
	}

	return &ParsedToken{
		Header:    header,
		Payload:   payload,
		Signature: signature,
		Claims:    claims,
	}, nil
}

// VerifySignature recomputes the signature over "<header>.<payload>" and
// compares it with the presented one in constant time. A presented
// signature that does not decode is a mismatch. Only a signer failure is
// returned as an error.
func (c *Codec) VerifySignature(header, payload, signature string, secret Secret) (bool, error) {
	presented, err := DecodeSegment(signature)
	if err != nil || len(presented) != SignatureSize {
		return false, nil
	}

	expected, err := c.signer.Sign([]byte(header+"."+payload), secret.Bytes())
	if err != nil {
		return false, err
	}

	return SignatureEqual(expected, presented), nil
}

// verifyHeader requires exactly the alg and typ members with the supported values.
func verifyHeader(segment string) error {
	raw, err := DecodeSegment(segment)
	if err != nil {
		return ErrUnsupportedHeader
	}

	members, err := decodeMembers(raw)
	if err != nil || len(members) != 2 {
		return ErrUnsupportedHeader
	}

	if alg, ok := member[string](members, "alg"); !ok || alg != Algorithm {
		return ErrUnsupportedHeader
	}

	if typ, ok := member[string](members, "typ"); !ok || typ != TokenType {
		return ErrUnsupportedHeader
	}

	return nil
}

var (
	errNotObject       = errors.New("json value is not an object")
	errDuplicateMember = errors.New("json object repeats a member")
	errTrailingData    = errors.New("unexpected data after json object")
)

// decodeMembers reads one JSON object into its raw members. Names are kept
// as written, so lookups are case sensitive. A repeated name or anything
// but whitespace after the closing brace is an error.
func decodeMembers(raw []byte) (map[string]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}

	members := map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		name, ok := tok.(string)
		if !ok {
			return nil, errNotObject
		}
		if _, seen := members[name]; seen {
			return nil, errDuplicateMember
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		members[name] = value
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}

	return members, nil
}

// member decodes the named member into T. Absent members, null and values
// of the wrong JSON type all report false.
func member[T any](members map[string]json.RawMessage, name string) (T, bool) {
	var zero T

	raw, ok := members[name]
	if !ok {
		return zero, false
	}

	var value *T
	if err := json.Unmarshal(raw, &value); err != nil || value == nil {
		return zero, false
	}

	return *value, true
}
