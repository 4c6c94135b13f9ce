package main

import (
	"fmt"
	"io"

	auth "github.com/goliatone/go-session-auth"
)

// runSecret prints a secret suitable for SESSION_INITIAL_SECRET
func runSecret(out io.Writer) error {
	secret, err := auth.GenerateSecret()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, secret.Reveal())
	return err
}
