package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goliatone/go-print"
	"github.com/spf13/pflag"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-session-auth"
	"github.com/goliatone/go-session-auth/repository"
)

func runServe(ctx context.Context, args []string, out io.Writer) error {
	var flags commonFlags
	var dumpConfig bool

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.add(fs)
	fs.BoolVar(&dumpConfig, "print-config", false, "print the effective configuration before starting")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	opts, err := loadOptions(flags.configFile, flags.envFile)
	if err != nil {
		return err
	}

	logger := NewSlogLogger(os.Stderr, flags.logLevel, flags.logJSON)

	if dumpConfig {
		fmt.Fprintln(out, print.MaybeHighlightJSON(opts))
	}

	db, accounts, err := openAccounts(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := newServices(opts, accounts, logger)
	if err != nil {
		return err
	}

	startRotation(ctx, opts, svc.secrets, logger)

	app := newApp(svc)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening on %s", opts.Server.Address)
		errCh <- app.Listen(opts.Server.Address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// startRotation runs the rotation loop in the background when an interval
// is configured. It reports whether the loop was started.
func startRotation(ctx context.Context, opts *auth.Options, secrets *auth.SecretStore, logger auth.Logger) bool {
	interval := opts.GetRotationInterval()
	if interval <= 0 {
		return false
	}

	if opts.GetInitialSecret() != "" {
		logger.Warn("secret rotation is per process, services sharing the initial secret reject tokens signed after the first rotation")
	}

	go func() {
		if err := secrets.RunRotation(ctx, interval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("secret rotation stopped: %v", err)
		}
	}()
	logger.Info("rotating secrets every %s, retention %s", interval, secrets.Retention())

	return true
}

func openAccounts(ctx context.Context, opts *auth.Options, logger auth.Logger) (*bun.DB, *repository.Accounts, error) {
	var queryLogger auth.Logger
	if opts.Database.Debug {
		queryLogger = logger
	}

	db, err := repository.Open(opts.Database.DSN, queryLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	accounts := repository.NewAccounts(db, repository.WithAccountsLogger(logger))
	if err := accounts.CreateTable(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create accounts table: %w", err)
	}

	if seed := opts.Database; seed.SeedLogin != "" {
		if _, err := accounts.Seed(ctx, repository.NewAccountInput{
			Login:       seed.SeedLogin,
			Credential:  seed.SeedCreds,
			DisplayName: seed.SeedName,
			Admin:       seed.SeedIsAdmin,
		}); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("seed account %s: %w", seed.SeedLogin, err)
		}
		logger.Info("seeded account %s", seed.SeedLogin)
	}

	return db, accounts, nil
}
