package auth

import (
	"context"
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// IssuedToken is a newly minted token and the claims it carries
type IssuedToken struct {
	Token  string
	Claims Claims
}

// Issuer turns verified credentials into signed tokens.
type Issuer struct {
	verifier CredentialVerifier
	secrets  SecretSource
	codec    *Codec
	ttl      time.Duration
	now      func() time.Time
	logger   Logger
	sink     ActivitySink
}

// IssuerOption customizes an Issuer
type IssuerOption func(*Issuer)

// WithTokenTTL sets how long issued tokens stay valid
func WithTokenTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.ttl = ttl
		}
	}
}

// WithIssuerClock injects a custom clock (useful for tests).
func WithIssuerClock(clock func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if clock != nil {
			i.now = clock
		}
	}
}

// WithIssuerCodec replaces the default codec
func WithIssuerCodec(codec *Codec) IssuerOption {
	return func(i *Issuer) {
		if codec != nil {
			i.codec = codec
		}
	}
}

// WithIssuerLogger sets the logger
func WithIssuerLogger(logger Logger) IssuerOption {
	return func(i *Issuer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithIssuerActivitySink sets the ActivitySink for issuance events.
func WithIssuerActivitySink(sink ActivitySink) IssuerOption {
	return func(i *Issuer) {
		i.sink = normalizeActivitySink(sink)
	}
}

// NewIssuer returns an Issuer that checks credentials with verifier and
// signs with the current secret of secrets.
func NewIssuer(verifier CredentialVerifier, secrets SecretSource, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		verifier: verifier,
		secrets:  secrets,
		codec:    NewCodec(),
		ttl:      DefaultTokenTTL,
		now:      time.Now,
		logger:   defLogger{},
		sink:     noopActivitySink{},
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// TTL returns the lifetime of issued tokens
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue verifies login and credential and returns a signed token.
//
// The verifier is called once. Unknown logins, wrong credentials and
// inactive accounts all return ErrInvalidCredentials.
func (i *Issuer) Issue(ctx context.Context, login, credential string) (*IssuedToken, error) {
	err := validation.Validate(login, validation.Required, validation.By(notBlank))
	if err == nil {
		err = validation.Validate(credential, validation.Required, validation.By(notBlank))
	}
	if err != nil {
		i.failed(ctx, login, "blank login or credential")
		return nil, ErrInvalidCredentials
	}

	info, err := i.verifier.VerifyCredentials(ctx, login, credential)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) || errors.Is(err, ErrAccountInactive) {
			i.failed(ctx, login, err.Error())
			return nil, ErrInvalidCredentials
		}
		i.logger.Error("issuer credential lookup failed: %v", err)
		i.failed(ctx, login, "credential lookup failed")
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to access credential store").
			WithTextCode(TextCodeCredentialLookup).
			WithCode(goerrors.CodeInternal)
	}

	if info == nil {
		i.failed(ctx, login, "credential not found")
		return nil, ErrInvalidCredentials
	}

	secretID, secret := i.secrets.Current()
	now := i.now()

	claims, err := NewClaims(ClaimsInput{
		Login:       login,
		DisplayName: info.DisplayName,
		Admin:       info.Admin,
		Expiration:  ExpiresIn(now, i.ttl),
		SecretID:    secretID,
	}, now)
	if err != nil {
		i.logger.Error("issuer could not build claims for %s: %v", login, err)
		i.failed(ctx, login, "invalid claims")
		return nil, err
	}

	token, err := i.codec.Build(claims, secret)
	if err != nil {
		i.logger.Error("issuer could not sign token with secret %s: %v", secretID, err)
		i.failed(ctx, login, "signing failed")
		return nil, err
	}

	i.logger.Info("issued token for %s with secret %s", login, secretID)
	emitActivity(ctx, i.sink, i.logger, ActivityEvent{
		EventType:  ActivityEventTokenIssued,
		Login:      login,
		SecretID:   secretID,
		OccurredAt: now,
		Metadata: map[string]any{
			"exp":   claims.Expiration(),
			"admin": claims.Admin(),
		},
	})

	return &IssuedToken{Token: token, Claims: claims}, nil
}

func (i *Issuer) failed(ctx context.Context, login, cause string) {
	emitActivity(ctx, i.sink, i.logger, ActivityEvent{
		EventType: ActivityEventTokenIssueFailed,
		Login:     login,
		Metadata:  map[string]any{"cause": cause},
	})
}
