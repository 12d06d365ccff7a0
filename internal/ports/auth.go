package ports

// Package ports defines interfaces (hexagonal ports) for identity resolution.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"
	"time"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

// IdentityProvider talks to the external identity provider (Discord).
// Implementations classify failures into the domain error taxonomy and never retry.
type IdentityProvider interface {
	// AuthorizeURL builds the provider consent URL for the given redirect and state.
	AuthorizeURL(redirectURI, state string) (string, error)

	// ExchangeCode trades an authorization code for a user access token.
	ExchangeCode(ctx context.Context, code, redirectURI string) (string, error)

	// FetchSelf returns the identity that owns the access token.
	FetchSelf(ctx context.Context, accessToken string) (domainauth.ExternalIdentity, error)

	// FetchGuildMembership returns the user's role IDs in the configured guild using bot credentials.
	FetchGuildMembership(ctx context.Context, externalID string) (domainauth.GuildMembership, error)
}

// RoleMapper maps guild role IDs to a clan rank. The boolean is false when no rank applies.
type RoleMapper interface {
	Map(roleIDs []string) (domainauth.RankAssignment, bool)
}

// ListProfilesOptions bounds a member listing.
type ListProfilesOptions struct {
	Limit      int
	Offset     int
	OnlyAccess bool // exclude profiles with no rank and no admin flag
}

// MemberStore persists accounts and profiles.
type MemberStore interface {
	// CommitResolution creates or gets the account for in.ExternalID and upserts its profile
	// atomically. NextRankDeadline is applied only when the profile is created.
	CommitResolution(ctx context.Context, in domainauth.ProfileInput) (domainauth.Account, domainauth.Profile, error)

	// GetAccount returns the account by internal ID.
	GetAccount(ctx context.Context, accountID string) (domainauth.Account, error)

	// GetProfile returns the profile by account ID.
	GetProfile(ctx context.Context, accountID string) (domainauth.Profile, error)

	// GetProfileByExternalID returns the profile by Discord ID.
	GetProfileByExternalID(ctx context.Context, externalID string) (domainauth.Profile, error)

	// UpdateRank overwrites rank and admin flag, keeping everything else.
	UpdateRank(ctx context.Context, accountID string, a domainauth.RankAssignment) (domainauth.Profile, error)

	// ListProfiles returns profiles ordered by display name.
	ListProfiles(ctx context.Context, opts ListProfilesOptions) ([]domainauth.Profile, error)
}

// SessionStore persists and retrieves sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// VerificationStore holds one-time tokens that exchange for a session.
type VerificationStore interface {
	Issue(ctx context.Context, token, sessionID string, ttl time.Duration) error
	// Consume returns the session ID and removes the token. Unknown tokens yield domainauth.ErrSessionNotFound.
	Consume(ctx context.Context, token string) (string, error)
}
