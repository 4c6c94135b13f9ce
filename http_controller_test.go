package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newControllerApp(t *testing.T, verifier auth.CredentialVerifier) *fiber.App {
	t.Helper()
	issuer, _ := newTestIssuer(t, verifier)

	app := fiber.New()
	auth.RegisterSessionRoutes(app.Group("/auth"), issuer, auth.WithControllerLogger(&captureLogger{}))
	return app
}

func decodeLogin(t *testing.T, res *http.Response) auth.LoginResponse {
	t.Helper()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	var out auth.LoginResponse
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out
}

var aliceVerifier = auth.CredentialVerifierFunc(func(_ context.Context, login, credential string) (*auth.UserInfo, error) {
	switch {
	case login == "alice" && credential == "pw":
		return &auth.UserInfo{DisplayName: "Alice"}, nil
	case login == "broken":
		return nil, errors.New("database unavailable")
	case login == "retired":
		return nil, auth.ErrAccountInactive
	default:
		return nil, auth.ErrCredentialNotFound
	}
})

func TestSessionControllerLoginGet(t *testing.T) {
	app := newControllerApp(t, aliceVerifier)

	t.Run("valid credentials", func(t *testing.T) {
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/login/alice/creds/pw", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)

		out := decodeLogin(t, res)
		assert.Equal(t, "alice", out.Login)
		assert.Equal(t, "Alice", out.Name)
		assert.False(t, out.Admin)
		require.NotNil(t, out.Exp)
		assert.Equal(t, testNow.Unix()+1800, out.Exp.Unix())
		assert.Equal(t, aliceToken, out.JWT)
		assert.Equal(t, auth.StatusComplete, out.Status)
		require.Len(t, out.Messages, 1)
		assert.Equal(t, auth.SeverityInfo, out.Messages[0].Severity)
	})

	t.Run("exp is whole seconds", func(t *testing.T) {
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/login/alice/creds/pw", nil))
		require.NoError(t, err)

		body, err := io.ReadAll(res.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"exp":1700001800,`)
	})

	t.Run("escaped path parameters", func(t *testing.T) {
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/login/al%69ce/creds/p%77", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
	})

	failures := []struct {
		name   string
		target string
	}{
		{name: "wrong credential", target: "/auth/login/alice/creds/nope"},
		{name: "unknown login", target: "/auth/login/bob/creds/pw"},
		{name: "inactive account", target: "/auth/login/retired/creds/pw"},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			res, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)

			out := decodeLogin(t, res)
			assert.Empty(t, out.JWT)
			assert.Equal(t, auth.StatusFailed, out.Status)
			require.Len(t, out.Messages, 1)
			assert.Equal(t, "unable to authenticate user login", out.Messages[0].Text)
		})
	}

	t.Run("blank login", func(t *testing.T) {
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/login/%20/creds/pw", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

		out := decodeLogin(t, res)
		require.NotEmpty(t, out.Messages)
		assert.Equal(t, "login", out.Messages[0].Field)
		assert.Equal(t, auth.SeverityError, out.Messages[0].Severity)
	})

	t.Run("infrastructure failure", func(t *testing.T) {
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/auth/login/broken/creds/pw", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, res.StatusCode)

		out := decodeLogin(t, res)
		assert.Equal(t, "internal server error", out.Messages[0].Text)
		assert.NotContains(t, out.Messages[0].Text, "database")
	})
}

func TestSessionControllerLoginPost(t *testing.T) {
	app := newControllerApp(t, aliceVerifier)

	post := func(t *testing.T, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		res, err := app.Test(req)
		require.NoError(t, err)
		return res
	}

	t.Run("valid credentials", func(t *testing.T) {
		res := post(t, `{"login":"alice","creds":"pw"}`)
		assert.Equal(t, fiber.StatusOK, res.StatusCode)
		assert.Equal(t, aliceToken, decodeLogin(t, res).JWT)
	})

	t.Run("wrong credential", func(t *testing.T) {
		res := post(t, `{"login":"alice","creds":"nope"}`)
		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		res := post(t, `{}`)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

		out := decodeLogin(t, res)
		require.Len(t, out.Messages, 2)
		assert.Equal(t, "creds", out.Messages[0].Field)
		assert.Equal(t, "login", out.Messages[1].Field)
	})

	t.Run("invalid body", func(t *testing.T) {
		res := post(t, `{"login":`)
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
		assert.Equal(t, auth.StatusFailed, decodeLogin(t, res).Status)
	})
}
