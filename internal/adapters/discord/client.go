package discord

// Package discord implements the identity provider port against the Discord REST API.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

const (
	DefaultAPIBaseURL = "https://discord.com/api/v10"
	DefaultAuthURL    = "https://discord.com/oauth2/authorize"
	DefaultTokenURL   = "https://discord.com/api/oauth2/token"
	DefaultScope      = "identify guilds.members.read"
	DefaultTimeout    = 5 * time.Second

	maxErrorBody = 4 << 10
)

// Endpoint labels used for metrics and logs.
const (
	EndpointToken  = "token"
	EndpointSelf   = "users_me"
	EndpointMember = "guild_member"
)

// RequestObserver receives one observation per outbound Discord call.
type RequestObserver interface {
	ObserveDiscordRequest(endpoint, outcome string, d time.Duration)
}

// ClientConfig holds configuration for the Discord client.
type ClientConfig struct {
	ClientID     string
	ClientSecret string
	BotToken     string
	GuildID      string
	Scope        string // space separated; defaults to DefaultScope

	APIBaseURL string // defaults to DefaultAPIBaseURL
	AuthURL    string // defaults to DefaultAuthURL
	TokenURL   string // defaults to DefaultTokenURL

	Timeout    time.Duration // per call; defaults to DefaultTimeout
	BotRate    float64       // bot calls per second; <= 0 disables throttling
	BotBurst   int
	HTTPClient *http.Client // Optional, defaults to a client with Timeout
	Observer   RequestObserver
}

// Client implements ports.IdentityProvider for Discord.
// It never retries; every failure is classified and returned.
type Client struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	apiBase    string
	botToken   string
	guildID    string
	timeout    time.Duration
	botLimiter *rate.Limiter
	observer   RequestObserver
}

// NewClient creates a new Discord client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.BotToken == "" {
		return nil, errors.New("bot token is required")
	}
	if cfg.GuildID == "" {
		return nil, errors.New("guild ID is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	burst := cfg.BotBurst
	if cfg.BotRate > 0 {
		limit = rate.Limit(cfg.BotRate)
		if burst <= 0 {
			burst = 1
		}
	}

	scope := cfg.Scope
	if scope == "" {
		scope = DefaultScope
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       strings.Fields(scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:   firstNonEmpty(cfg.AuthURL, DefaultAuthURL),
				TokenURL:  firstNonEmpty(cfg.TokenURL, DefaultTokenURL),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		apiBase:    strings.TrimSuffix(firstNonEmpty(cfg.APIBaseURL, DefaultAPIBaseURL), "/"),
		botToken:   cfg.BotToken,
		guildID:    cfg.GuildID,
		timeout:    timeout,
		botLimiter: rate.NewLimiter(limit, burst),
		observer:   cfg.Observer,
	}, nil
}

// AuthorizeURL builds the Discord consent URL.
func (c *Client) AuthorizeURL(redirectURI, state string) (string, error) {
	if redirectURI == "" {
		return "", errors.New("redirect URI is required")
	}
	if _, err := url.ParseRequestURI(redirectURI); err != nil {
		return "", fmt.Errorf("invalid redirect URI: %w", err)
	}
	cfg := c.withRedirect(redirectURI)
	return cfg.AuthCodeURL(state), nil
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: authorization code is required", domainauth.ErrInvalidGrant)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	start := time.Now()
	tok, err := c.withRedirect(redirectURI).Exchange(ctx, code)
	if err != nil {
		c.observe(EndpointToken, exchangeOutcome(err), start)
		return "", fmt.Errorf("exchange code: %w", classifyExchangeError(err))
	}
	c.observe(EndpointToken, outcomeOK, start)
	if tok.AccessToken == "" {
		return "", fmt.Errorf("exchange code: %w: empty access token", domainauth.ErrUpstream)
	}
	return tok.AccessToken, nil
}

type discordUser struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	GlobalName *string `json:"global_name"`
	Avatar     *string `json:"avatar"`
}

type guildMember struct {
	Roles []string     `json:"roles"`
	User  *discordUser `json:"user"`
}

// FetchSelf returns the identity behind the access token.
func (c *Client) FetchSelf(ctx context.Context, accessToken string) (domainauth.ExternalIdentity, error) {
	if accessToken == "" {
		return domainauth.ExternalIdentity{}, fmt.Errorf("fetch self: %w: empty access token", domainauth.ErrUnauthorized)
	}

	var u discordUser
	status, err := c.getJSON(ctx, EndpointSelf, "/users/@me", "Bearer "+accessToken, &u)
	if err != nil {
		return domainauth.ExternalIdentity{}, fmt.Errorf("fetch self: %w", classifySelfError(status, err))
	}
	if u.ID == "" {
		return domainauth.ExternalIdentity{}, fmt.Errorf("fetch self: %w: missing user id", domainauth.ErrUpstream)
	}

	id := domainauth.ExternalIdentity{
		ExternalID:  u.ID,
		DisplayName: u.Username,
	}
	if u.GlobalName != nil && *u.GlobalName != "" {
		id.DisplayName = *u.GlobalName
	}
	if u.Avatar != nil {
		id.AvatarHandle = *u.Avatar
	}
	return id, nil
}

// FetchGuildMembership returns the role IDs held in the configured guild, using bot credentials.
func (c *Client) FetchGuildMembership(ctx context.Context, externalID string) (domainauth.GuildMembership, error) {
	if externalID == "" {
		return domainauth.GuildMembership{}, errors.New("external ID is required")
	}
	if err := c.botLimiter.Wait(ctx); err != nil {
		c.observe(EndpointMember, outcomeThrottled, time.Now())
		return domainauth.GuildMembership{}, fmt.Errorf("fetch guild membership: %w: %w", domainauth.ErrUpstream, err)
	}

	path := "/guilds/" + url.PathEscape(c.guildID) + "/members/" + url.PathEscape(externalID)
	var m guildMember
	if _, err := c.getJSON(ctx, EndpointMember, path, "Bot "+c.botToken, &m); err != nil {
		return domainauth.GuildMembership{}, fmt.Errorf("fetch guild membership: %w", classifyMemberError(err))
	}
	return domainauth.GuildMembership{ExternalID: externalID, RoleIDs: m.Roles}, nil
}

func (c *Client) withRedirect(redirectURI string) *oauth2.Config {
	cfg := *c.oauth
	cfg.RedirectURL = redirectURI
	return &cfg
}

// getJSON performs a GET and decodes a 2xx body into dst. It returns the HTTP status (0 on transport
// failure) with an error for anything but 2xx.
func (c *Client) getJSON(ctx context.Context, endpoint, path, authorization string, dst any) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", authorization)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, outcomeTransport, start)
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(endpoint, statusOutcome(resp.StatusCode), start)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, newStatusError(resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		c.observe(endpoint, outcomeDecode, start)
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	c.observe(endpoint, outcomeOK, start)
	return resp.StatusCode, nil
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveDiscordRequest(endpoint, outcome, time.Since(start))
}

// firstNonEmpty returns the first non-empty string from vals, or empty string if none.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
