package auth

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
)

const (
	// DefaultTokenTTL is the lifetime of issued tokens
	DefaultTokenTTL = 30 * time.Minute
	// DefaultContextKey is the fiber locals key holding the Identity
	DefaultContextKey = "identity"
	// EnvPrefix prefixes every environment variable read by LoadOptions
	EnvPrefix = "SESSION_"
)

// Options is the default Config implementation. Start from DefaultOptions,
// fill it from a YAML document, then overlay the environment. Unset
// variables leave fields untouched.
type Options struct {
	TokenTTL         time.Duration `yaml:"token_ttl" json:"token_ttl" env:"TOKEN_TTL"`
	SecretRetention  time.Duration `yaml:"secret_retention" json:"secret_retention" env:"SECRET_RETENTION"`
	RotationInterval time.Duration `yaml:"rotation_interval" json:"rotation_interval" env:"ROTATION_INTERVAL"`
	InitialSecretID  string        `yaml:"initial_secret_id" json:"initial_secret_id" env:"INITIAL_SECRET_ID"`
	InitialSecret    string        `yaml:"initial_secret" json:"-" env:"INITIAL_SECRET"`
	AuthScheme       string        `yaml:"auth_scheme" json:"auth_scheme" env:"AUTH_SCHEME"`
	ContextKey       string        `yaml:"context_key" json:"context_key" env:"CONTEXT_KEY"`
	// DisableAuthentication lets every protected request through as a fixed
	// development identity. Never enable it in production.
	DisableAuthentication bool `yaml:"disable_authentication" json:"disable_authentication" env:"DISABLE_AUTHENTICATION"`

	Server   ServerOptions   `yaml:"server" json:"server" envPrefix:"SERVER_"`
	Database DatabaseOptions `yaml:"database" json:"database" envPrefix:"DATABASE_"`
}

// ServerOptions configures the HTTP listener of the command
type ServerOptions struct {
	Address        string `yaml:"address" json:"address" env:"ADDRESS"`
	ProtectedRoute string `yaml:"protected_route" json:"protected_route" env:"PROTECTED_ROUTE"`
}

// DatabaseOptions configures the credential store of the command
type DatabaseOptions struct {
	DSN         string `yaml:"dsn" json:"dsn" env:"DSN"`
	Debug       bool   `yaml:"debug" json:"debug" env:"DEBUG"`
	SeedLogin   string `yaml:"seed_login" json:"seed_login" env:"SEED_LOGIN"`
	SeedName    string `yaml:"seed_name" json:"seed_name" env:"SEED_NAME"`
	SeedCreds   string `yaml:"seed_creds" json:"-" env:"SEED_CREDS"`
	SeedIsAdmin bool   `yaml:"seed_admin" json:"seed_admin" env:"SEED_ADMIN"`
}

var _ Config = (*Options)(nil)

// DefaultOptions returns the options used when nothing is configured
func DefaultOptions() *Options {
	return &Options{
		TokenTTL:        DefaultTokenTTL,
		InitialSecretID: DefaultSecretID,
		AuthScheme:      DefaultAuthScheme,
		ContextKey:      DefaultContextKey,
		Server: ServerOptions{
			Address:        ":8572",
			ProtectedRoute: "/rs",
		},
		Database: DatabaseOptions{
			DSN: "file::memory:?cache=shared",
		},
	}
}

// LoadOptions overlays environment variables prefixed with EnvPrefix on
// base, or on DefaultOptions when base is nil, and validates the result.
func LoadOptions(base *Options) (*Options, error) {
	opts := base
	if opts == nil {
		opts = DefaultOptions()
	}

	if err := env.ParseWithOptions(opts, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, err
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return opts, nil
}

// Validate checks the option invariants. Retention shorter than the token
// TTL would drop secrets still referenced by live tokens.
func (o *Options) Validate() error {
	return validation.ValidateStruct(o,
		validation.Field(&o.TokenTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&o.SecretRetention, validation.By(func(value any) error {
			d, _ := value.(time.Duration)
			if d != 0 && d < o.TokenTTL {
				return errors.New("must be at least the token TTL")
			}
			return nil
		})),
		validation.Field(&o.RotationInterval, validation.Min(time.Duration(0))),
		validation.Field(&o.InitialSecretID, validation.Required, validation.By(notBlank)),
		validation.Field(&o.InitialSecret, validation.Length(MinSecretLength, 0)),
		validation.Field(&o.AuthScheme, validation.Required),
		validation.Field(&o.ContextKey, validation.Required),
	)
}

func (o *Options) GetTokenTTL() time.Duration {
	return o.TokenTTL
}

// GetSecretRetention defaults to the token TTL
func (o *Options) GetSecretRetention() time.Duration {
	if o.SecretRetention > 0 {
		return o.SecretRetention
	}
	return o.TokenTTL
}

func (o *Options) GetRotationInterval() time.Duration {
	return o.RotationInterval
}

func (o *Options) GetInitialSecretID() string {
	return o.InitialSecretID
}

func (o *Options) GetInitialSecret() string {
	return o.InitialSecret
}

func (o *Options) GetAuthScheme() string {
	return o.AuthScheme
}

func (o *Options) GetContextKey() string {
	return o.ContextKey
}

func (o *Options) GetAuthenticationDisabled() bool {
	return o.DisableAuthentication
}

// NewSecretStoreFromConfig builds a SecretStore using cfg's initial secret
// and retention.
func NewSecretStoreFromConfig(cfg Config, opts ...SecretStoreOption) (*SecretStore, error) {
	base := []SecretStoreOption{
		WithSecretRetention(cfg.GetSecretRetention()),
	}
	if cfg.GetInitialSecret() != "" {
		base = append(base, WithInitialSecret(cfg.GetInitialSecretID(), Secret(cfg.GetInitialSecret())))
	} else {
		base = append(base, WithInitialSecret(cfg.GetInitialSecretID(), ""))
	}
	return NewSecretStore(append(base, opts...)...)
}
