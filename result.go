package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// RejectReason is the internal reason code of a rejected request.
type RejectReason string

const (
	ReasonMissingAuthorization RejectReason = "missing authorization"
	ReasonBadBearerFormat      RejectReason = "bad bearer format"
	ReasonInvalidToken         RejectReason = "invalid token"
	ReasonUnknownSecret        RejectReason = "unknown secret id"
	ReasonInvalidSignature     RejectReason = "invalid signature"
	ReasonExpired              RejectReason = "expired"
	ReasonInternal             RejectReason = "internal error"
)

// ErrRejected is the client facing error for every rejected request. It
// carries no hint of which check failed.
var ErrRejected = goerrors.New("invalid or expired token", goerrors.CategoryAuth).
	WithTextCode(TextCodeRejected).
	WithCode(goerrors.CodeForbidden)

// Identity is the trusted identity of an authenticated request
type Identity struct {
	Login       string `json:"login"`
	DisplayName string `json:"name"`
	Admin       bool   `json:"admin"`
}

// AuthenticationResult is either authenticated, with an identity, or
// rejected, with a reason.
type AuthenticationResult struct {
	identity *Identity
	reason   RejectReason
}

// Authenticated returns a successful result
func Authenticated(identity Identity) AuthenticationResult {
	return AuthenticationResult{identity: &identity}
}

// Rejected returns a failed result
func Rejected(reason RejectReason) AuthenticationResult {
	return AuthenticationResult{reason: reason}
}

// IsAuthenticated reports whether the request carries a trusted identity
func (r AuthenticationResult) IsAuthenticated() bool {
	return r.identity != nil
}

// Identity returns the trusted identity, if any
func (r AuthenticationResult) Identity() (Identity, bool) {
	if r.identity == nil {
		return Identity{}, false
	}
	return *r.identity, true
}

// Reason returns the rejection reason, empty when authenticated
func (r AuthenticationResult) Reason() RejectReason {
	return r.reason
}

// Err returns ErrRejected for rejected results and nil otherwise
func (r AuthenticationResult) Err() error {
	if r.identity != nil {
		return nil
	}
	return ErrRejected
}

func (r AuthenticationResult) String() string {
	if r.identity != nil {
		return "authenticated(" + r.identity.Login + ")"
	}
	return "rejected(" + string(r.reason) + ")"
}
