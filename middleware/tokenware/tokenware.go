package tokenware

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-session-auth"
)

// Authenticator mirrors auth.Gate so the middleware can be tested with
// a stub.
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (auth.AuthenticationResult, error)
}

// DevelopmentIdentity is attached to every request when authentication is
// disabled.
var DevelopmentIdentity = auth.Identity{
	Login:       "developer",
	DisplayName: "Development User",
	Admin:       true,
}

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	// ErrorHandler receives auth.ErrRejected for rejected requests and the
	// system error otherwise
	ErrorHandler fiber.ErrorHandler
	Gate         Authenticator
	ContextKey   string
	// DisableAuthentication skips the gate and attaches Identity instead.
	DisableAuthentication bool
	Identity              *auth.Identity
	Logger                auth.Logger
}

// New returns a fiber handler that only lets authenticated requests
// through. Rejected requests get a 403 with a generic message.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)

	if cfg.DisableAuthentication {
		cfg.Logger.Warn("authentication is disabled, every request runs as %s", cfg.Identity.Login)
	}

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		if cfg.DisableAuthentication {
			attach(c, cfg.ContextKey, *cfg.Identity)
			return cfg.SuccessHandler(c)
		}

		authorization := c.Get(fiber.HeaderAuthorization)

		result, err := cfg.Gate.Authenticate(c.UserContext(), authorization)
		if err != nil {
			cfg.Logger.Error("token gate failure on %s %s: %v", c.Method(), c.Path(), err)
			return cfg.ErrorHandler(c, err)
		}

		identity, ok := result.Identity()
		if !ok {
			cfg.Logger.Debug("rejected %s %s: %s", c.Method(), c.Path(), result.Reason())
			return cfg.ErrorHandler(c, result.Err())
		}

		attach(c, cfg.ContextKey, identity)
		return cfg.SuccessHandler(c)
	}
}

// FromConfig builds the middleware from the package Config.
func FromConfig(gate Authenticator, cfg auth.Config, logger auth.Logger) fiber.Handler {
	return New(Config{
		Gate:                  gate,
		ContextKey:            cfg.GetContextKey(),
		DisableAuthentication: cfg.GetAuthenticationDisabled(),
		Logger:                logger,
	})
}

// GetDefaultConfig fills in defaults. It panics when no Gate is given and
// authentication is enabled.
func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.DefaultContextKey
	}

	if cfg.Identity == nil {
		dev := DevelopmentIdentity
		cfg.Identity = &dev
	}

	if cfg.Logger == nil {
		cfg.Logger = stdLogger{}
	}

	if cfg.Gate == nil && !cfg.DisableAuthentication {
		panic("SESSION: token middleware configuration: Gate is required.")
	}

	return cfg
}

// DefaultErrorHandler answers 500 for system errors and 403 for everything
// else. The body never says which check failed.
func DefaultErrorHandler(c *fiber.Ctx, err error) error {
	if auth.IsSystemError(err) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": auth.ErrRejected.Message,
	})
}

// IdentityFromLocals returns the identity stored by the middleware
func IdentityFromLocals(c *fiber.Ctx, key ...string) (auth.Identity, bool) {
	k := auth.DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	identity, ok := c.Locals(k).(auth.Identity)
	return identity, ok
}

func attach(c *fiber.Ctx, key string, identity auth.Identity) {
	c.Locals(key, identity)
	c.SetUserContext(auth.WithIdentity(c.UserContext(), identity))
}

type stdLogger struct{}

func (stdLogger) Debug(format string, args ...any) {}

func (stdLogger) Info(format string, args ...any) {
	log.Printf("[INF] SESSION "+format, args...)
}

func (stdLogger) Warn(format string, args ...any) {
	log.Printf("[WRN] SESSION "+format, args...)
}

func (stdLogger) Error(format string, args ...any) {
	log.Printf("[ERR] SESSION "+format, args...)
}
