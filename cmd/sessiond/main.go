// sessiond issues and checks short lived session tokens.
//
// Usage:
//
//	sessiond serve  [--config file] [--env-file file]
//	sessiond mint   --login alice --creds pw [--config file]
//	sessiond secret
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		printUsage(out)
		return errors.New("missing command")
	}

	switch args[0] {
	case "serve":
		return runServe(ctx, args[1:], out)
	case "mint":
		return runMint(ctx, args[1:], out)
	case "secret":
		return runSecret(out)
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		printUsage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// commonFlags are accepted by every command that loads configuration
type commonFlags struct {
	configFile string
	envFile    string
	logLevel   string
	logJSON    bool
}

func (c *commonFlags) add(fs *pflag.FlagSet) {
	fs.StringVarP(&c.configFile, "config", "c", "", "YAML configuration file")
	fs.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading SESSION_* variables")
	fs.StringVar(&c.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.BoolVar(&c.logJSON, "log-json", false, "write JSON log records")
}

func printUsage(out io.Writer) {
	fmt.Fprint(out, `sessiond issues and checks short lived session tokens.

Usage:
  sessiond serve   start the HTTP server
  sessiond mint    issue a token for an account and print it
  sessiond secret  print a freshly generated signing secret

Run "sessiond <command> --help" for command flags.
`)
}
