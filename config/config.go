// Package config loads identity settings from IDENTITY_ prefixed
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-identity/metrics"
	"github.com/goliatone/go-identity/social"
	"github.com/goliatone/go-identity/social/providers/google"
)

// Prefix is prepended to every variable name.
const Prefix = "IDENTITY_"

// Config implements identity.Config.
type Config struct {
	SigningKey          string        `env:"SIGNING_KEY"`
	Issuer              string        `env:"ISSUER" envDefault:"go-identity"`
	Audience            []string      `env:"AUDIENCE" envSeparator:","`
	TokenTTL            time.Duration `env:"TOKEN_TTL" envDefault:"15m"`
	SessionTTL          time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	LongLivedSessionTTL time.Duration `env:"LONG_LIVED_SESSION_TTL" envDefault:"720h"`
	RefreshTimeout      time.Duration `env:"REFRESH_TIMEOUT" envDefault:"5s"`
	BcryptCost          int           `env:"BCRYPT_COST" envDefault:"12"`

	RequireVerifiedEmail bool `env:"REQUIRE_VERIFIED_EMAIL" envDefault:"true"`
	MaxUsernameAttempts  int  `env:"MAX_USERNAME_ATTEMPTS" envDefault:"0"`

	DB     Database `envPrefix:"DB_"`
	Google Google   `envPrefix:"GOOGLE_"`
	State  State    `envPrefix:"STATE_"`

	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"identity"`
}

// Database selects the storage driver.
type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file::memory:?cache=shared"`
}

// Google holds the Google OAuth client settings.
type Google struct {
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	CallbackURL  string   `env:"CALLBACK_URL"`
	Scopes       []string `env:"SCOPES" envSeparator:","`
}

// State holds the OAuth state signing settings.
type State struct {
	SigningKey string        `env:"SIGNING_KEY"`
	TTL        time.Duration `env:"TTL" envDefault:"10m"`
}

// minStateKeyLength is the shortest accepted HS256 state key.
const minStateKeyLength = 32

// Load parses the process environment.
func Load() (*Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom parses vars instead of the process environment. Keys include
// the prefix.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing or inconsistent settings as a configuration error.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.SigningKey) == "" {
		missing = append(missing, Prefix+"SIGNING_KEY")
	}
	if c.TokenTTL <= 0 {
		missing = append(missing, Prefix+"TOKEN_TTL")
	}
	if c.SessionTTL <= 0 {
		missing = append(missing, Prefix+"SESSION_TTL")
	}
	if c.LongLivedSessionTTL < c.SessionTTL {
		missing = append(missing, Prefix+"LONG_LIVED_SESSION_TTL")
	}
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		missing = append(missing, Prefix+"DB_DRIVER")
	}
	if n := len(c.State.SigningKey); n != 0 && n < minStateKeyLength {
		missing = append(missing, Prefix+"STATE_SIGNING_KEY")
	}
	if len(missing) > 0 {
		return identity.NewConfigurationError("identity", missing...)
	}
	return nil
}

// GoogleEnabled reports whether any Google client setting is present.
func (c *Config) GoogleEnabled() bool {
	return c.Google.ClientID != "" || c.Google.ClientSecret != "" || c.Google.CallbackURL != ""
}

// StateManager returns the OAuth state manager, or nil when no state
// signing key is configured.
func (c *Config) StateManager() social.StateManager {
	if c.State.SigningKey == "" {
		return nil
	}
	return social.NewSignedStateManager([]byte(c.State.SigningKey), c.State.TTL)
}

// Hasher returns a bcrypt hasher using the configured cost.
func (c *Config) Hasher() *identity.BcryptHasher {
	return identity.NewBcryptHasher(c.BcryptCost)
}

// ResolverOptions returns the resolver settings carried by the config.
// Callers append their own logger, metrics and sink options.
func (c *Config) ResolverOptions() []social.ResolverOption {
	return []social.ResolverOption{
		social.WithEmailVerificationRequired(c.RequireVerifiedEmail),
		social.WithMaxUsernameAttempts(c.MaxUsernameAttempts),
	}
}

// Metrics registers the identity collectors on reg under the configured
// namespace.
func (c *Config) Metrics(reg prometheus.Registerer) *metrics.Prometheus {
	return metrics.New(reg, c.MetricsNamespace)
}

// GoogleConfig returns the provider settings for google.New.
func (c *Config) GoogleConfig() google.Config {
	return google.Config{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		CallbackURL:  c.Google.CallbackURL,
		Scopes:       c.Google.Scopes,
	}
}

func (c *Config) GetSigningKey() string {
	return c.SigningKey
}

func (c *Config) GetIssuer() string {
	return c.Issuer
}

func (c *Config) GetAudience() []string {
	return c.Audience
}

func (c *Config) GetTokenTTL() time.Duration {
	return c.TokenTTL
}

func (c *Config) GetSessionTTL() time.Duration {
	return c.SessionTTL
}

func (c *Config) GetLongLivedSessionTTL() time.Duration {
	return c.LongLivedSessionTTL
}

func (c *Config) GetRefreshTimeout() time.Duration {
	return c.RefreshTimeout
}

var _ identity.Config = (*Config)(nil)
