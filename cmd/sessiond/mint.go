package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/pflag"

	auth "github.com/goliatone/go-session-auth"
)

// ErrMintWithoutSecret is returned by mint when no shared secret is
// configured. A generated secret only lives in this process so no server
// could verify the token.
var ErrMintWithoutSecret = errors.New("mint needs SESSION_INITIAL_SECRET (or initial_secret in the config file)")

type mintOutput struct {
	Login string           `json:"login"`
	Name  string           `json:"name"`
	Admin bool             `json:"admin"`
	Exp   *jwt.NumericDate `json:"exp"`
	SID   string           `json:"sid"`
	JWT   string           `json:"jwt"`
}

func runMint(ctx context.Context, args []string, out io.Writer) error {
	var flags commonFlags
	var login, creds string

	fs := pflag.NewFlagSet("mint", pflag.ContinueOnError)
	flags.add(fs)
	fs.StringVarP(&login, "login", "l", "", "account login")
	fs.StringVarP(&creds, "creds", "p", "", "account credential")
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

	if opts.GetInitialSecret() == "" {
		return ErrMintWithoutSecret
	}

	logger := NewSlogLogger(os.Stderr, flags.logLevel, flags.logJSON)

	db, accounts, err := openAccounts(ctx, opts, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := newServices(opts, accounts, logger)
	if err != nil {
		return err
	}

	issued, err := svc.issuer.Issue(ctx, login, creds)
	if err != nil {
		return err
	}

	return writeMinted(out, issued)
}

func writeMinted(out io.Writer, issued *auth.IssuedToken) error {
	claims := issued.Claims
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(mintOutput{
		Login: claims.Login(),
		Name:  claims.DisplayName(),
		Admin: claims.Admin(),
		Exp:   claims.NumericExpiration(),
		SID:   claims.SecretID(),
		JWT:   issued.Token,
	})
}
