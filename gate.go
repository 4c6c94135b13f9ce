package auth

import (
	"context"
	"regexp"
	"time"
)

// DefaultAuthScheme is the scheme expected in the Authorization header
const DefaultAuthScheme = "Bearer"

const segmentPattern = `[A-Za-z0-9_-]+`

// Gate turns an Authorization header into an AuthenticationResult.
//
// Checks run in a fixed order and stop at the first failure:
// header present, bearer format, token structure and header, secret id
// known, signature, expiration. Everything before the signature check is
// structural so malformed input never reaches the signer.
type Gate struct {
	codec   *Codec
	secrets SecretLookup
	bearer  *regexp.Regexp
	now     func() time.Time
	logger  Logger
	sink    ActivitySink
}

// GateOption customizes a Gate
type GateOption func(*Gate)

// WithGateClock injects a custom clock (useful for tests).
func WithGateClock(clock func() time.Time) GateOption {
	return func(g *Gate) {
		if clock != nil {
			g.now = clock
		}
	}
}

// WithGateCodec replaces the default codec
func WithGateCodec(codec *Codec) GateOption {
	return func(g *Gate) {
		if codec != nil {
			g.codec = codec
		}
	}
}

// WithGateLogger sets the logger
func WithGateLogger(logger Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGateActivitySink reports rejections, with their reason, to sink.
func WithGateActivitySink(sink ActivitySink) GateOption {
	return func(g *Gate) {
		g.sink = normalizeActivitySink(sink)
	}
}

// WithAuthScheme changes the expected scheme, "Bearer" by default.
func WithAuthScheme(scheme string) GateOption {
	return func(g *Gate) {
		if scheme != "" {
			g.bearer = bearerPattern(scheme)
		}
	}
}

// NewGate returns a Gate that verifies tokens against secrets
func NewGate(secrets SecretLookup, opts ...GateOption) *Gate {
	g := &Gate{
		codec:   NewCodec(),
		secrets: secrets,
		bearer:  bearerPattern(DefaultAuthScheme),
		now:     time.Now,
		logger:  defLogger{},
		sink:    noopActivitySink{},
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Authenticate checks authorization at the gate's current time.
func (g *Gate) Authenticate(ctx context.Context, authorization string) (AuthenticationResult, error) {
	return g.AuthenticateAt(ctx, authorization, g.now())
}

// AuthenticateAt checks authorization as of now. Untrusted input only ever
// produces a rejected result; the error is reserved for system failures
// such as a broken signer.
func (g *Gate) AuthenticateAt(ctx context.Context, authorization string, now time.Time) (AuthenticationResult, error) {
	if authorization == "" {
		return g.reject(ctx, ReasonMissingAuthorization, "", ""), nil
	}

	match := g.bearer.FindStringSubmatch(authorization)
	if match == nil {
		return g.reject(ctx, ReasonBadBearerFormat, "", ""), nil
	}

	parsed, err := g.codec.ParseUnverified(match[1])
	if err != nil {
		g.logger.Debug("gate could not parse token: %v", err)
		return g.reject(ctx, ReasonInvalidToken, "", ""), nil
	}

	claims := parsed.Claims

	secret, ok := g.secrets.ByID(claims.SecretID())
	if !ok {
		return g.reject(ctx, ReasonUnknownSecret, claims.Login(), claims.SecretID()), nil
	}

	valid, err := g.codec.VerifySignature(parsed.Header, parsed.Payload, parsed.Signature, secret)
	if err != nil {
		g.logger.Error("gate signature check failed for secret %s: %v", claims.SecretID(), err)
		return Rejected(ReasonInternal), err
	}

	if !valid {
		return g.reject(ctx, ReasonInvalidSignature, claims.Login(), claims.SecretID()), nil
	}

	if claims.ExpiredAt(now) {
		return g.reject(ctx, ReasonExpired, claims.Login(), claims.SecretID()), nil
	}

	return Authenticated(claims.Identity()), nil
}

func (g *Gate) reject(ctx context.Context, reason RejectReason, login, secretID string) AuthenticationResult {
	g.logger.Debug("gate rejected request: %s", reason)
	emitActivity(ctx, g.sink, g.logger, ActivityEvent{
		EventType: ActivityEventTokenRejected,
		Login:     login,
		SecretID:  secretID,
		Reason:    reason,
	})
	return Rejected(reason)
}

func bearerPattern(scheme string) *regexp.Regexp {
	return regexp.MustCompile(`^` + regexp.QuoteMeta(scheme) + ` (` +
		segmentPattern + `\.` + segmentPattern + `\.` + segmentPattern + `)$`)
}
