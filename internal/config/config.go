// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/teamauth/pkg/cookie"
	"github.com/dmitrymomot/teamauth/pkg/db"
	"github.com/dmitrymomot/teamauth/pkg/logger"
	"github.com/dmitrymomot/teamauth/pkg/oauth"
	"github.com/dmitrymomot/teamauth/pkg/provision"
	"github.com/dmitrymomot/teamauth/pkg/redis"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config is the full server configuration.
type Config struct {
	Address         string        `env:"HTTP_ADDRESS" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Tenant hosts are <subdomain>.<BaseDomain>; a login started there joins that tenant.
	BaseDomain         string   `env:"BASE_DOMAIN" envDefault:"localhost"`
	ReservedSubdomains []string `env:"RESERVED_SUBDOMAINS" envSeparator:"," envDefault:"www,api,app,auth,admin"`

	StoreDriver string        `env:"STORE_DRIVER" envDefault:"postgres"`
	StateTTL    time.Duration `env:"OAUTH_STATE_TTL" envDefault:"10m"`

	// Empty disables binding the state to a browser cookie.
	CookieSecret string `env:"COOKIE_SECRET"`
	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"true"`

	TenantCacheTTL  time.Duration `env:"TENANT_CACHE_TTL" envDefault:"5m"`
	TenantCacheSize int           `env:"TENANT_CACHE_SIZE" envDefault:"10000"`

	DB        db.Config
	Redis     redis.Config
	Google    oauth.GoogleConfig
	GitHub    oauth.GitHubConfig
	Provision provision.Config
	Log       logger.Config
}

var (
	ErrUnknownStoreDriver = errors.New("config: unknown store driver")
	ErrNoProviders        = errors.New("config: no OAuth provider configured")
	ErrMissingDatabaseURL = errors.New("config: DATABASE_CONN_URL is required for the postgres store")
	ErrShortCookieSecret  = errors.New("config: COOKIE_SECRET must be at least 32 bytes")
)

// Load reads an optional .env file, then parses the environment into Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks cross-field requirements env tags cannot express.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DB.ConnectionString == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreDriver, c.StoreDriver)
	}

	if c.CookieSecret != "" && len(c.CookieSecret) < cookie.MinSecretLength {
		return ErrShortCookieSecret
	}

	if c.Google.ClientID == "" && c.GitHub.ClientID == "" {
		return ErrNoProviders
	}

	return nil
}
