package devauth

// Package devauth provides a config-driven identity provider for local development.
// It stands in for Discord so the full resolution flow can run without a guild or bot.

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

const devAccessToken = "dev-access-token"

// Config controls the dev provider behavior.
// ExternalID and DisplayName are required; RoleIDs may be empty to exercise the no-role path.
type Config struct {
	ExternalID   string
	DisplayName  string
	AvatarHandle string
	RoleIDs      []string
	NotMember    bool
}

// Provider implements ports.IdentityProvider for local development.
// AuthorizeURL redirects straight back to the caller's redirect URI with a fixed code;
// every code except the empty string is accepted.
type Provider struct {
	mu        sync.RWMutex
	identity  domainauth.ExternalIdentity
	roleIDs   []string
	notMember bool
}

// NewProvider constructs a dev provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.ExternalID == "" {
		return nil, errors.New("dev auth: ExternalID is required")
	}
	if cfg.DisplayName == "" {
		return nil, errors.New("dev auth: DisplayName is required")
	}
	return &Provider{
		identity: domainauth.ExternalIdentity{
			ExternalID:   cfg.ExternalID,
			DisplayName:  cfg.DisplayName,
			AvatarHandle: cfg.AvatarHandle,
		},
		roleIDs:   append([]string(nil), cfg.RoleIDs...),
		notMember: cfg.NotMember,
	}, nil
}

// SetRoleIDs replaces the guild roles reported for the dev user.
func (p *Provider) SetRoleIDs(roleIDs []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roleIDs = append([]string(nil), roleIDs...)
}

// AuthorizeURL returns the redirect URI itself with code=dev and the state appended.
func (p *Provider) AuthorizeURL(redirectURI, state string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || redirectURI == "" {
		return "", fmt.Errorf("invalid redirect URI %q", redirectURI)
	}
	q := u.Query()
	q.Set("code", "dev")
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *Provider) ExchangeCode(_ context.Context, code, _ string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("exchange code: %w", domainauth.ErrInvalidGrant)
	}
	return devAccessToken, nil
}

func (p *Provider) FetchSelf(_ context.Context, accessToken string) (domainauth.ExternalIdentity, error) {
	if accessToken != devAccessToken {
		return domainauth.ExternalIdentity{}, fmt.Errorf("fetch self: %w", domainauth.ErrUnauthorized)
	}
	return p.identity, nil
}

func (p *Provider) FetchGuildMembership(_ context.Context, externalID string) (domainauth.GuildMembership, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.notMember || externalID != p.identity.ExternalID {
		return domainauth.GuildMembership{}, fmt.Errorf("fetch guild membership: %w", domainauth.ErrNotAMember)
	}
	return domainauth.GuildMembership{
		ExternalID: externalID,
		RoleIDs:    append([]string(nil), p.roleIDs...),
	}, nil
}
