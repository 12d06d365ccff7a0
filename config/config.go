package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Discord, rank roles, dev auth and session lifetimes
//   - database.go: Postgres and Redis
//   - http.go: HTTP server, public URL and CORS
//   - observability.go: Prometheus metrics and logging
type AppConfig struct {
	// IsDev enables development conveniences such as text logs.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.HTTP.Sanitize()
	c.Observability.Sanitize()
	c.detectDevMode()
}

// Validate reports configuration that would prevent the service from starting.
func (c *AppConfig) Validate() error {
	var errs []error
	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP.BaseURL == "" {
		errs = append(errs, errors.New("APP_BASE_URL is required"))
	}
	return errors.Join(errs...)
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// LogValue keeps secrets out of structured logs.
func (c AppConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("dev", c.IsDev),
		slog.String("auth_mode", string(c.Auth.Mode)),
		slog.String("guild_id", c.Auth.Discord.GuildID),
		slog.String("db_host", c.Postgres.Host),
		slog.String("db_name", c.Postgres.Name),
		slog.String("http_addr", c.HTTP.Addr),
		slog.String("base_url", c.HTTP.BaseURL),
		slog.Bool("metrics", c.Observability.Metrics.Enabled),
	)
}
