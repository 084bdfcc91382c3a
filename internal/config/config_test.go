package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/teamauth/internal/config"
)

func TestLoad(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("GOOGLE_OAUTH_CLIENT_ID", "id")
	t.Setenv("GOOGLE_OAUTH_CLIENT_SECRET", "secret")
	t.Setenv("SUPPORTED_LANGUAGES", "en_US,de_DE")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Address)
	require.Equal(t, "localhost", cfg.BaseDomain)
	require.Equal(t, []string{"www", "api", "app", "auth", "admin"}, cfg.ReservedSubdomains)
	require.Equal(t, []string{"en_US", "de_DE"}, cfg.Provision.Languages)
	require.Equal(t, "My Team", cfg.Provision.DefaultTenantName)
	require.Equal(t, "=s128-c", cfg.Provision.AvatarSizeTo)
	require.Equal(t, "id", cfg.Google.ClientID)
	require.Equal(t, slog.LevelDebug, cfg.Log.Level)
	require.Empty(t, cfg.CookieSecret)
	require.True(t, cfg.CookieSecure)
	require.Equal(t, 5*time.Minute, cfg.TenantCacheTTL)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	google := config.Config{StoreDriver: config.StoreMemory}
	google.Google.ClientID = "id"
	require.NoError(t, google.Validate())

	none := config.Config{StoreDriver: config.StoreMemory}
	require.ErrorIs(t, none.Validate(), config.ErrNoProviders)

	pg := google
	pg.StoreDriver = config.StorePostgres
	require.ErrorIs(t, pg.Validate(), config.ErrMissingDatabaseURL)

	pg.DB.ConnectionString = "postgres://localhost/teamauth"
	require.NoError(t, pg.Validate())

	short := google
	short.CookieSecret = "too-short"
	require.ErrorIs(t, short.Validate(), config.ErrShortCookieSecret)

	bad := google
	bad.StoreDriver = "sqlite"
	require.ErrorIs(t, bad.Validate(), config.ErrUnknownStoreDriver)
}
