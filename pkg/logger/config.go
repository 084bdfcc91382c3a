package logger

import "log/slog"

// Config controls logger construction.
type Config struct {
	Sentry SentryConfig
	// Output format: "json" (default) or "text".
	Format string     `env:"LOG_FORMAT" envDefault:"json"`
	Level  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
}

// SentryConfig holds Sentry integration configuration.
type SentryConfig struct {
	DSN         string `env:"SENTRY_DSN"`
	Environment string `env:"SENTRY_ENVIRONMENT" envDefault:"production"`
	// MinLevel determines which log levels to send to Sentry (e.g., slog.LevelWarn for warnings+errors)
	MinLevel slog.Level `env:"SENTRY_MIN_LEVEL" envDefault:"warn"`
}
