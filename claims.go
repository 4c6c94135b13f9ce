package auth

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// MaxExpiration is the largest exp value accepted, in seconds since epoch.
// Anything above it is almost certainly a millisecond timestamp.
const MaxExpiration int64 = 100_000_000_000

// ClaimsInput carries the values used to build Claims on the issuance path.
type ClaimsInput struct {
	Login       string
	DisplayName string
	Admin       bool
	// Expiration is in seconds since epoch
	Expiration int64
	SecretID   string
}

// Claims is the immutable payload carried by a session token.
type Claims struct {
	login    string
	name     string
	admin    bool
	exp      int64
	secretID string
}

// wireClaims is the JSON shape of the payload. Field order is the
// serialization order.
type wireClaims struct {
	Login    string `json:"lid"`
	Name     string `json:"name"`
	Admin    bool   `json:"admin"`
	Exp      int64  `json:"exp"`
	SecretID string `json:"sid"`
}

// NewClaims validates in against now and returns the claims. The expiration
// must be strictly after now.
func NewClaims(in ClaimsInput, now time.Time) (Claims, error) {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Login, validation.Required, validation.By(notBlank)),
		validation.Field(&in.DisplayName, validation.Required, validation.By(notBlank)),
		validation.Field(&in.SecretID, validation.Required, validation.By(notBlank)),
		validation.Field(&in.Expiration, validation.Required, validation.By(expirationAfter(now))),
	)
	if err != nil {
		return Claims{}, goerrors.Wrap(err, goerrors.CategoryValidation, ErrInvalidClaims.Message).
			WithTextCode(TextCodeInvalidClaims).
			WithCode(goerrors.CodeBadRequest)
	}

	return Claims{
		login:    in.Login,
		name:     in.DisplayName,
		admin:    in.Admin,
		exp:      in.Expiration,
		secretID: in.SecretID,
	}, nil
}

// ExpiresIn returns the expiration, in seconds, ttl after now
func ExpiresIn(now time.Time, ttl time.Duration) int64 {
	return now.Add(ttl).Unix()
}

func (c Claims) Login() string       { return c.login }
func (c Claims) DisplayName() string { return c.name }
func (c Claims) Admin() bool         { return c.admin }
func (c Claims) SecretID() string    { return c.secretID }

// Expiration returns exp in seconds since epoch
func (c Claims) Expiration() int64 { return c.exp }

// ExpiresAt returns exp as a time
func (c Claims) ExpiresAt() time.Time { return time.Unix(c.exp, 0) }

// NumericExpiration returns exp in the registered claims representation
func (c Claims) NumericExpiration() *jwt.NumericDate {
	return jwt.NewNumericDate(c.ExpiresAt())
}

// ExpiredAt reports whether the claims are expired at now. A token whose
// exp equals now is still valid.
func (c Claims) ExpiredAt(now time.Time) bool {
	return now.Unix() > c.exp
}

// Identity returns the identity asserted by the claims
func (c Claims) Identity() Identity {
	return Identity{
		Login:       c.login,
		DisplayName: c.name,
		Admin:       c.admin,
	}
}

// MarshalJSON produces the canonical payload. It is the only serialization
// used for signing.
func (c Claims) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireClaims{
		Login:    c.login,
		Name:     c.name,
		Admin:    c.admin,
		Exp:      c.exp,
		SecretID: c.secretID,
	})
}

// decodeClaims parses an untrusted payload. All five members are required,
// spelled exactly as on the wire, once each and with the expected JSON
// types; unknown members are ignored.
func decodeClaims(payload []byte) (Claims, error) {
	members, err := decodeMembers(payload)
	if err != nil {
		return Claims{}, ErrMalformedClaims
	}

	login, okLogin := member[string](members, "lid")
	name, okName := member[string](members, "name")
	admin, okAdmin := member[bool](members, "admin")
	exp, okExp := member[int64](members, "exp")
	secretID, okSecretID := member[string](members, "sid")
	if !okLogin || !okName || !okAdmin || !okExp || !okSecretID {
		return Claims{}, ErrMalformedClaims
	}

	if isBlank(login) || isBlank(name) || isBlank(secretID) {
		return Claims{}, ErrMalformedClaims
	}

	if exp <= 0 || exp > MaxExpiration {
		return Claims{}, ErrMalformedClaims
	}

	return Claims{
		login:    login,
		name:     name,
		admin:    admin,
		exp:      exp,
		secretID: secretID,
	}, nil
}

func notBlank(value any) error {
	s, _ := value.(string)
	if isBlank(s) {
		return errors.New("cannot be blank")
	}
	return nil
}

func expirationAfter(now time.Time) validation.RuleFunc {
	return func(value any) error {
		exp, _ := value.(int64)
		if exp > MaxExpiration {
			return errors.New("must be expressed in seconds since epoch")
		}
		if exp <= now.Unix() {
			return errors.New("must be in the future")
		}
		return nil
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
