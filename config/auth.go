package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// AuthMode represents the identity provider used for sign-in.
type AuthMode string

const (
	// AuthModeDiscord signs users in through Discord OAuth2.
	AuthModeDiscord AuthMode = "discord"
	// AuthModeMock uses a local fake identity (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "discord", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: discord, mock)", v)
	}
}

// DiscordConfig contains the OAuth application, bot credential and target guild.
type DiscordConfig struct {
	ClientID     string        `env:"CLIENT_ID"`
	ClientSecret string        `env:"CLIENT_SECRET"`
	BotToken     string        `env:"BOT_TOKEN"`
	GuildID      string        `env:"SERVER_ID"`
	Scope        string        `env:"SCOPE"           envDefault:"identify guilds.members.read"`
	APIBaseURL   string        `env:"API_BASE_URL"    envDefault:"https://discord.com/api/v10"`
	Timeout      time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	// BotRate limits bot-credential calls per second; 0 disables the limiter.
	BotRate  float64 `env:"BOT_RATE"  envDefault:"10"`
	BotBurst int     `env:"BOT_BURST" envDefault:"10"`
}

// RoleConfig holds the Discord role IDs for each rank.
type RoleConfig struct {
	HighStaff string `env:"HIGH_STAFF"`
	Main      string `env:"MAIN"`
	Test      string `env:"TEST"`
	Newbie    string `env:"NEWBIE"`
}

// IDs returns the configured role IDs, skipping empty ones.
func (r RoleConfig) IDs() []string {
	out := make([]string, 0, 4)
	for _, id := range []string{r.HighStaff, r.Main, r.Test, r.Newbie} {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// DevAuthConfig controls the mock identity used when AUTH_MODE=mock.
type DevAuthConfig struct {
	ExternalID   string   `env:"EXTERNAL_ID"   envDefault:"100000000000000001"`
	DisplayName  string   `env:"DISPLAY_NAME"  envDefault:"Dev Member"`
	AvatarHandle string   `env:"AVATAR_HANDLE"`
	RoleIDs      []string `env:"ROLE_IDS"      envSeparator:";"`
	NotMember    bool     `env:"NOT_MEMBER"    envDefault:"false"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	Mode AuthMode `env:"AUTH_MODE" envDefault:"discord"`

	Discord DiscordConfig `envPrefix:"DISCORD_"`
	Roles   RoleConfig    `envPrefix:"DISCORD_ROLE_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	SessionTTL      time.Duration `env:"SESSION_TTL"      envDefault:"168h"`
	VerificationTTL time.Duration `env:"VERIFICATION_TTL" envDefault:"10m"`
	// RankPeriod is the time from first sign-in to the next rank review.
	RankPeriod time.Duration `env:"RANK_PERIOD" envDefault:"720h"`
}

// Sanitize trims identifiers and replaces non-positive durations with defaults.
func (a *AuthConfig) Sanitize() {
	a.Discord.ClientID = strings.TrimSpace(a.Discord.ClientID)
	a.Discord.GuildID = strings.TrimSpace(a.Discord.GuildID)
	a.Roles.HighStaff = strings.TrimSpace(a.Roles.HighStaff)
	a.Roles.Main = strings.TrimSpace(a.Roles.Main)
	a.Roles.Test = strings.TrimSpace(a.Roles.Test)
	a.Roles.Newbie = strings.TrimSpace(a.Roles.Newbie)

	if a.Discord.Timeout <= 0 {
		a.Discord.Timeout = 5 * time.Second
	}
	if a.Discord.BotRate < 0 {
		a.Discord.BotRate = 0
	}
	if a.Discord.BotBurst < 1 {
		a.Discord.BotBurst = 1
	}
	if a.SessionTTL <= 0 {
		a.SessionTTL = 7 * 24 * time.Hour
	}
	if a.VerificationTTL <= 0 {
		a.VerificationTTL = 10 * time.Minute
	}
	if a.RankPeriod <= 0 {
		a.RankPeriod = 30 * 24 * time.Hour
	}
}

// Validate requires the Discord credentials and at least one rank role in discord mode.
func (a *AuthConfig) Validate() error {
	if a.Mode != AuthModeDiscord {
		return nil
	}
	var missing []string
	for name, v := range map[string]string{
		"DISCORD_CLIENT_ID":     a.Discord.ClientID,
		"DISCORD_CLIENT_SECRET": a.Discord.ClientSecret,
		"DISCORD_BOT_TOKEN":     a.Discord.BotToken,
		"DISCORD_SERVER_ID":     a.Discord.GuildID,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("discord auth requires %s", strings.Join(missing, ", "))
	}
	if len(a.Roles.IDs()) == 0 {
		return errors.New("discord auth requires at least one DISCORD_ROLE_* value")
	}
	return nil
}
