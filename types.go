package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds session token options
type Config interface {
	GetTokenTTL() time.Duration
	GetSecretRetention() time.Duration
	GetRotationInterval() time.Duration
	GetInitialSecretID() string
	GetInitialSecret() string
	GetAuthScheme() string
	GetContextKey() string
	GetAuthenticationDisabled() bool
}

// UserInfo is what a CredentialVerifier knows about a login
type UserInfo struct {
	DisplayName string
	Admin       bool
}

// CredentialVerifier checks a login and credential pair against an external
// store. Implementations return (nil, nil), ErrCredentialNotFound or
// ErrAccountInactive when the pair should not be trusted. Any other error is
// treated as an infrastructure failure.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, login, credential string) (*UserInfo, error)
}

// CredentialVerifierFunc adapts a function into a CredentialVerifier.
type CredentialVerifierFunc func(ctx context.Context, login, credential string) (*UserInfo, error)

// VerifyCredentials satisfies the CredentialVerifier interface.
func (f CredentialVerifierFunc) VerifyCredentials(ctx context.Context, login, credential string) (*UserInfo, error) {
	if f == nil {
		return nil, ErrCredentialNotFound
	}
	return f(ctx, login, credential)
}

// SecretLookup is the read side of the SecretStore, which is all the gate needs
type SecretLookup interface {
	ByID(id string) (Secret, bool)
}

// SecretSource is the issuance side of the SecretStore
type SecretSource interface {
	Current() (string, Secret)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
