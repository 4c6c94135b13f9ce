package auth_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSigner counts every signature computed
type countingSigner struct {
	calls atomic.Int32
}

func (s *countingSigner) Sign(message, secret []byte) ([]byte, error) {
	s.calls.Add(1)
	return auth.HMACSigner{}.Sign(message, secret)
}

func newTestGate(t *testing.T, opts ...auth.GateOption) (*auth.Gate, *auth.SecretStore) {
	t.Helper()
	store, err := auth.NewSecretStore(
		auth.WithInitialSecret("sec0", testSecret),
		auth.WithSecretStoreLogger(&captureLogger{}),
	)
	require.NoError(t, err)

	base := []auth.GateOption{
		auth.WithGateClock(fixedClock(testNow)),
		auth.WithGateLogger(&captureLogger{}),
	}
	return auth.NewGate(store, append(base, opts...)...), store
}

func TestGateAuthenticate(t *testing.T) {
	gate, _ := newTestGate(t)
	ctx := context.Background()

	unknownSid := rawToken(t, auth.HeaderJSON,
		`{"lid":"alice","name":"Alice","admin":false,"exp":1700001800,"sid":"sec7"}`, testSecret)
	wrongSecret := rawToken(t, auth.HeaderJSON,
		`{"lid":"alice","name":"Alice","admin":true,"exp":1700001800,"sid":"sec0"}`, auth.Secret(strings.Repeat("w", 32)))
	expired := rawToken(t, auth.HeaderJSON,
		`{"lid":"alice","name":"Alice","admin":false,"exp":1699999999,"sid":"sec0"}`, testSecret)
	badHeader := rawToken(t, `{"alg":"none","typ":"JWT"}`,
		`{"lid":"alice","name":"Alice","admin":false,"exp":1700001800,"sid":"sec0"}`, testSecret)
	missingClaim := rawToken(t, auth.HeaderJSON,
		`{"lid":"alice","admin":false,"exp":1700001800,"sid":"sec0"}`, testSecret)

	tests := []struct {
		name          string
		authorization string
		want          auth.RejectReason
	}{
		{name: "missing header", authorization: "", want: auth.ReasonMissingAuthorization},
		{name: "no scheme", authorization: aliceToken, want: auth.ReasonBadBearerFormat},
		{name: "lowercase scheme", authorization: "bearer " + aliceToken, want: auth.ReasonBadBearerFormat},
		{name: "other scheme", authorization: "Basic YWxpY2U6cHc=", want: auth.ReasonBadBearerFormat},
		{name: "double space", authorization: "Bearer  " + aliceToken, want: auth.ReasonBadBearerFormat},
		{name: "trailing space", authorization: "Bearer " + aliceToken + " ", want: auth.ReasonBadBearerFormat},
		{name: "not a token", authorization: "Bearer not-a-jwt", want: auth.ReasonBadBearerFormat},
		{name: "four segments", authorization: "Bearer a.b.c.d", want: auth.ReasonBadBearerFormat},
		{name: "padded segment", authorization: "Bearer " + aliceToken + "=", want: auth.ReasonBadBearerFormat},
		{name: "garbage segments", authorization: "Bearer a.b.c", want: auth.ReasonInvalidToken},
		{name: "unsupported header", authorization: "Bearer " + badHeader, want: auth.ReasonInvalidToken},
		{name: "missing claim", authorization: "Bearer " + missingClaim, want: auth.ReasonInvalidToken},
		{name: "unknown secret id", authorization: "Bearer " + unknownSid, want: auth.ReasonUnknownSecret},
		{name: "forged signature", authorization: "Bearer " + wrongSecret, want: auth.ReasonInvalidSignature},
		{name: "expired", authorization: "Bearer " + expired, want: auth.ReasonExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := gate.Authenticate(ctx, tt.authorization)
			require.NoError(t, err)
			assert.False(t, result.IsAuthenticated())
			assert.Equal(t, tt.want, result.Reason())
			assert.ErrorIs(t, result.Err(), auth.ErrRejected)

			_, ok := result.Identity()
			assert.False(t, ok)
		})
	}

	t.Run("valid token", func(t *testing.T) {
		result, err := gate.Authenticate(ctx, "Bearer "+aliceToken)
		require.NoError(t, err)
		require.True(t, result.IsAuthenticated())
		assert.NoError(t, result.Err())
		assert.Empty(t, result.Reason())

		identity, ok := result.Identity()
		require.True(t, ok)
		assert.Equal(t, auth.Identity{Login: "alice", DisplayName: "Alice", Admin: false}, identity)
		assert.Equal(t, "authenticated(alice)", result.String())
	})
}

func TestGateExpirationBoundary(t *testing.T) {
	gate, _ := newTestGate(t)
	ctx := context.Background()
	exp := time.Unix(1700001800, 0)

	result, err := gate.AuthenticateAt(ctx, "Bearer "+aliceToken, exp)
	require.NoError(t, err)
	assert.True(t, result.IsAuthenticated(), "exp equal to now is accepted")

	result, err = gate.AuthenticateAt(ctx, "Bearer "+aliceToken, exp.Add(500*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, result.IsAuthenticated(), "same second is accepted")

	result, err = gate.AuthenticateAt(ctx, "Bearer "+aliceToken, exp.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, auth.ReasonExpired, result.Reason())
}

func TestGateStructuralRejectionsNeverSign(t *testing.T) {
	signer := &countingSigner{}
	gate, _ := newTestGate(t, auth.WithGateCodec(auth.NewCodec(auth.WithSigner(signer))))
	ctx := context.Background()

	unknownSid := rawToken(t, auth.HeaderJSON,
		`{"lid":"alice","name":"Alice","admin":false,"exp":1700001800,"sid":"nope"}`, testSecret)

	for _, authorization := range []string{
		"",
		"Bearer not-a-jwt",
		"Token " + aliceToken,
		"Bearer a.b.c",
		"Bearer " + unknownSid,
	} {
		result, err := gate.Authenticate(ctx, authorization)
		require.NoError(t, err)
		assert.False(t, result.IsAuthenticated())
	}
	assert.Equal(t, int32(0), signer.calls.Load())

	result, err := gate.Authenticate(ctx, "Bearer "+aliceToken)
	require.NoError(t, err)
	assert.True(t, result.IsAuthenticated())
	assert.Equal(t, int32(1), signer.calls.Load())
}

func TestGateSystemError(t *testing.T) {
	broken := auth.NewCodec(auth.WithSigner(auth.SignerFunc(func(_, _ []byte) ([]byte, error) {
		return nil, auth.ErrCrypto
	})))
	logger := &captureLogger{}
	gate, _ := newTestGate(t, auth.WithGateCodec(broken), auth.WithGateLogger(logger))

	result, err := gate.Authenticate(context.Background(), "Bearer "+aliceToken)
	assert.ErrorIs(t, err, auth.ErrCrypto)
	assert.True(t, auth.IsSystemError(err))
	assert.False(t, result.IsAuthenticated())
	assert.Equal(t, auth.ReasonInternal, result.Reason())
	assert.Contains(t, logger.levels(), "error")
}

func TestGateAfterRotation(t *testing.T) {
	clock := &manualClock{now: testNow}
	store, err := auth.NewSecretStore(
		auth.WithInitialSecret("sec0", testSecret),
		auth.WithSecretStoreClock(clock.Now),
		auth.WithSecretRetention(30*time.Minute),
		auth.WithSecretStoreLogger(&captureLogger{}),
	)
	require.NoError(t, err)

	gate := auth.NewGate(store, auth.WithGateClock(clock.Now), auth.WithGateLogger(&captureLogger{}))
	ctx := context.Background()

	_, err = store.Rotate()
	require.NoError(t, err)

	result, err := gate.Authenticate(ctx, "Bearer "+aliceToken)
	require.NoError(t, err)
	assert.True(t, result.IsAuthenticated(), "tokens signed with a retired secret stay valid")

	clock.Advance(30*time.Minute + time.Second)
	store.Prune()

	result, err = gate.Authenticate(ctx, "Bearer "+aliceToken)
	require.NoError(t, err)
	assert.Equal(t, auth.ReasonUnknownSecret, result.Reason())
}

func TestGateCustomScheme(t *testing.T) {
	gate, _ := newTestGate(t, auth.WithAuthScheme("Token"))
	ctx := context.Background()

	result, err := gate.Authenticate(ctx, "Token "+aliceToken)
	require.NoError(t, err)
	assert.True(t, result.IsAuthenticated())

	result, err = gate.Authenticate(ctx, "Bearer "+aliceToken)
	require.NoError(t, err)
	assert.Equal(t, auth.ReasonBadBearerFormat, result.Reason())
}

func TestGateRejectionActivity(t *testing.T) {
	sink := &recordingSink{}
	gate, _ := newTestGate(t, auth.WithGateActivitySink(sink))

	unknownSid := rawToken(t, auth.HeaderJSON,
		`{"lid":"mallory","name":"M","admin":true,"exp":1700001800,"sid":"sec9"}`, testSecret)

	_, err := gate.Authenticate(context.Background(), "Bearer "+unknownSid)
	require.NoError(t, err)
	_, err = gate.Authenticate(context.Background(), "Bearer "+aliceToken)
	require.NoError(t, err)

	events := sink.all()
	require.Len(t, events, 1, "only rejections are recorded")
	assert.Equal(t, auth.ActivityEventTokenRejected, events[0].EventType)
	assert.Equal(t, auth.ReasonUnknownSecret, events[0].Reason)
	assert.Equal(t, "mallory", events[0].Login)
	assert.Equal(t, "sec9", events[0].SecretID)
}

func TestGateWithIssuer(t *testing.T) {
	store, err := auth.NewSecretStore(auth.WithSecretStoreLogger(&captureLogger{}))
	require.NoError(t, err)

	verifier := auth.CredentialVerifierFunc(func(_ context.Context, login, credential string) (*auth.UserInfo, error) {
		if login == "alice" && credential == "pw" {
			return &auth.UserInfo{DisplayName: "Alice A", Admin: false}, nil
		}
		return nil, auth.ErrCredentialNotFound
	})

	issuer := auth.NewIssuer(verifier, store,
		auth.WithTokenTTL(1800*time.Second),
		auth.WithIssuerClock(fixedClock(testNow)),
		auth.WithIssuerLogger(&captureLogger{}),
	)

	issued, err := issuer.Issue(context.Background(), "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, "sec0", issued.Claims.SecretID())
	assert.Equal(t, testNow.Unix()+1800, issued.Claims.Expiration())

	t.Run("verified immediately", func(t *testing.T) {
		immediate := auth.NewGate(store, auth.WithGateClock(fixedClock(testNow)), auth.WithGateLogger(&captureLogger{}))
		result, err := immediate.Authenticate(context.Background(), "Bearer "+issued.Token)
		require.NoError(t, err)
		assert.Equal(t, auth.Authenticated(auth.Identity{Login: "alice", DisplayName: "Alice A", Admin: false}), result)
	})

	gate := auth.NewGate(store, auth.WithGateClock(fixedClock(testNow.Add(29*time.Minute))), auth.WithGateLogger(&captureLogger{}))
	result, err := gate.Authenticate(context.Background(), "Bearer "+issued.Token)
	require.NoError(t, err)
	identity, ok := result.Identity()
	require.True(t, ok)
	assert.Equal(t, "alice", identity.Login)
	assert.Equal(t, "Alice A", identity.DisplayName)
	assert.False(t, identity.Admin)

	late := auth.NewGate(store, auth.WithGateClock(fixedClock(testNow.Add(31*time.Minute))), auth.WithGateLogger(&captureLogger{}))
	result, err = late.Authenticate(context.Background(), "Bearer "+issued.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.ReasonExpired, result.Reason())
}
