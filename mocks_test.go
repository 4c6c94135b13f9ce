package auth_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	auth "github.com/goliatone/go-session-auth"
	"github.com/stretchr/testify/mock"
)

const testSecret auth.Secret = "0123456789abcdef0123456789abcdef"

var testNow = time.Unix(1_700_000_000, 0)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// MockVerifier implements auth.CredentialVerifier
type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) VerifyCredentials(ctx context.Context, login, credential string) (*auth.UserInfo, error) {
	args := m.Called(ctx, login, credential)
	info, _ := args.Get(0).(*auth.UserInfo)
	return info, args.Error(1)
}

type logCall struct {
	level   string
	message string
}

type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

func (l *captureLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, message: fmt.Sprintf(format, args...)})
}

func (l *captureLogger) Debug(format string, args ...any) { l.record("debug", format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.record("info", format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.record("warn", format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.record("error", format, args...) }

func (l *captureLogger) levels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.calls))
	for _, c := range l.calls {
		out = append(out, c.level)
	}
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
	err    error
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) all() []auth.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]auth.ActivityEvent(nil), s.events...)
}

func mustClaims(login, name string, admin bool, exp int64, sid string) auth.Claims {
	claims, err := auth.NewClaims(auth.ClaimsInput{
		Login:       login,
		DisplayName: name,
		Admin:       admin,
		Expiration:  exp,
		SecretID:    sid,
	}, time.Unix(exp-1, 0))
	if err != nil {
		panic(err)
	}
	return claims
}
