package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	auth "github.com/goliatone/go-session-auth"
)

// loadOptions reads, in order of increasing precedence, the defaults, the
// YAML file, the dotenv file and the process environment.
func loadOptions(configFile, envFile string) (*auth.Options, error) {
	opts := auth.DefaultOptions()

	if configFile != "" {
		raw, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(raw, opts); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configFile, err)
		}
	}

	if envFile != "" {
		// godotenv never overrides variables already set
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	return auth.LoadOptions(opts)
}
