package bootstrap

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/clanhall/gatekeeper/config"
	"github.com/clanhall/gatekeeper/internal/adapters/authroles"
	"github.com/clanhall/gatekeeper/internal/adapters/devauth"
	"github.com/clanhall/gatekeeper/internal/adapters/discord"
	redisadapter "github.com/clanhall/gatekeeper/internal/adapters/redis"
	"github.com/clanhall/gatekeeper/internal/data"
	"github.com/clanhall/gatekeeper/internal/observability/metrics"
	"github.com/clanhall/gatekeeper/internal/ports"
	"github.com/clanhall/gatekeeper/internal/service"
)

// IdentityConfig contains the dependencies for the identity resolver.
type IdentityConfig struct {
	Auth        config.AuthConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	KeyPrefix   string
	Metrics     *metrics.Collector
	Logger      *slog.Logger
}

// BuildIdentityProvider creates the identity provider for the configured auth mode.
//
//nolint:ireturn // the provider is chosen at runtime.
func BuildIdentityProvider(cfg config.AuthConfig, collector *metrics.Collector) (ports.IdentityProvider, error) {
	switch cfg.Mode {
	case config.AuthModeMock:
		// Explicitly enabled dev auth mode; build a local provider.
		return devauth.NewProvider(devauth.Config{
			ExternalID:   cfg.DevAuth.ExternalID,
			DisplayName:  cfg.DevAuth.DisplayName,
			AvatarHandle: cfg.DevAuth.AvatarHandle,
			RoleIDs:      cfg.DevAuth.RoleIDs,
			NotMember:    cfg.DevAuth.NotMember,
		})

	case config.AuthModeDiscord:
		d := cfg.Discord
		return discord.NewClient(discord.ClientConfig{
			ClientID:     d.ClientID,
			ClientSecret: d.ClientSecret,
			BotToken:     d.BotToken,
			GuildID:      d.GuildID,
			Scope:        d.Scope,
			APIBaseURL:   d.APIBaseURL,
			Timeout:      d.Timeout,
			BotRate:      d.BotRate,
			BotBurst:     d.BotBurst,
			Observer:     collector,
		})

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Mode)
	}
}

// BuildIdentityResolver wires the provider, rank mapper and stores into an IdentityResolver.
func BuildIdentityResolver(cfg IdentityConfig) (*service.IdentityResolver, error) {
	if cfg.DB == nil {
		return nil, errors.New("identity resolver requires a database")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("identity resolver requires a redis client")
	}

	provider, err := BuildIdentityProvider(cfg.Auth, cfg.Metrics)
	if err != nil {
		return nil, fmt.Errorf("build identity provider: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("identity provider configured",
			"mode", cfg.Auth.Mode,
			"guild_id", cfg.Auth.Discord.GuildID,
			"roles", len(cfg.Auth.Roles.IDs()),
		)
	}

	sessions, verifications := redisStores(cfg.RedisClient, cfg.KeyPrefix)
	return service.NewIdentityResolver(service.IdentityResolverOptions{
		Provider:        provider,
		Roles:           RankMapper(cfg.Auth.Roles),
		Members:         data.NewMemberRepo(cfg.DB),
		Sessions:        sessions,
		Verifications:   verifications,
		Metrics:         cfg.Metrics,
		Logger:          cfg.Logger,
		SessionTTL:      cfg.Auth.SessionTTL,
		VerificationTTL: cfg.Auth.VerificationTTL,
		RankPeriod:      cfg.Auth.RankPeriod,
	}), nil
}

// RankMapper builds the rank mapper for the configured role IDs.
func RankMapper(roles config.RoleConfig) authroles.RankMapper {
	return authroles.RankMapper{
		HighStaff: roles.HighStaff,
		Main:      roles.Main,
		Test:      roles.Test,
		Newbie:    roles.Newbie,
	}
}

// redisStores scopes session and verification keys under the configured prefix.
func redisStores(client redis.UniversalClient, prefix string) (*redisadapter.SessionStore, *redisadapter.VerificationStore) {
	return redisadapter.NewSessionStoreWithPrefix(client, prefix+"session:"),
		redisadapter.NewVerificationStoreWithPrefix(client, prefix+"verify:")
}
