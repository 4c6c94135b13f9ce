package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-session-auth"
	"github.com/goliatone/go-session-auth/activitymap"
	"github.com/goliatone/go-session-auth/middleware/tokenware"
)

// services holds everything the HTTP app needs
type services struct {
	opts    *auth.Options
	logger  auth.Logger
	secrets *auth.SecretStore
	issuer  *auth.Issuer
	gate    *auth.Gate
}

func newServices(opts *auth.Options, verifier auth.CredentialVerifier, logger auth.Logger) (*services, error) {
	sink := logActivitySink(logger)

	secrets, err := auth.NewSecretStoreFromConfig(opts,
		auth.WithSecretStoreLogger(logger),
		auth.WithSecretStoreActivitySink(sink),
	)
	if err != nil {
		return nil, err
	}

	issuer := auth.NewIssuer(verifier, secrets,
		auth.WithTokenTTL(opts.GetTokenTTL()),
		auth.WithIssuerLogger(logger),
		auth.WithIssuerActivitySink(sink),
	)

	gate := auth.NewGate(secrets,
		auth.WithAuthScheme(opts.GetAuthScheme()),
		auth.WithGateLogger(logger),
		auth.WithGateActivitySink(sink),
	)

	return &services{
		opts:    opts,
		logger:  logger,
		secrets: secrets,
		issuer:  issuer,
		gate:    gate,
	}, nil
}

func newApp(s *services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "sessiond",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auth.RegisterSessionRoutes(app.Group("/auth"), s.issuer,
		auth.WithControllerLogger(s.logger),
	)

	protected := app.Group(s.opts.Server.ProtectedRoute,
		tokenware.FromConfig(s.gate, s.opts, s.logger),
	)
	protected.Get("/whoami", whoami)

	return app
}

func whoami(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c.UserContext())
	if !ok {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": auth.ErrRejected.Message})
	}
	return c.JSON(identity)
}

// logActivitySink writes normalized activity records to the log. Rejections
// are frequent and attacker driven so they stay at debug level.
func logActivitySink(logger auth.Logger) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		record, err := json.Marshal(activitymap.Normalize(event))
		if err != nil {
			return err
		}
		if event.EventType == auth.ActivityEventTokenRejected {
			logger.Debug("activity %s", record)
			return nil
		}
		logger.Info("activity %s", record)
		return nil
	})
}
