package auth

// Package auth contains domain-level types for Discord identity resolution, clan ranks and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"math"
	"time"
)

// Rank is a clan rank derived from Discord guild roles.
// Keep string form for easy persistence and JSON.
type Rank string

const (
	RankNone      Rank = ""
	RankNewbie    Rank = "Newbie"
	RankTest      Rank = "Test"
	RankMain      Rank = "Main"
	RankHighStaff Rank = "HighStaff"
)

// Valid reports whether r is one of the four assignable ranks.
func (r Rank) Valid() bool {
	switch r {
	case RankNewbie, RankTest, RankMain, RankHighStaff:
		return true
	default:
		return false
	}
}

// ParseRank converts a stored value into a Rank; unknown values yield RankNone.
func ParseRank(s string) Rank {
	r := Rank(s)
	if r.Valid() {
		return r
	}
	return RankNone
}

// RankAssignment is the result of mapping guild roles to a rank.
type RankAssignment struct {
	Rank    Rank `json:"rank"`
	IsAdmin bool `json:"is_admin"`
}

// ExternalIdentity is the Discord user as reported by the identity provider.
type ExternalIdentity struct {
	ExternalID   string // Discord snowflake
	DisplayName  string // global_name, falling back to username
	AvatarHandle string // avatar hash, may be empty
}

// GuildMembership lists the role IDs a user holds in the configured guild.
// It is never persisted.
type GuildMembership struct {
	ExternalID string
	RoleIDs    []string
}

// Account is the internal identity keyed 1:1 by ExternalID.
type Account struct {
	ID         string
	ExternalID string
	CreatedAt  time.Time
}

// Profile is the persisted per-account clan record.
type Profile struct {
	AccountID        string
	ExternalID       string
	DisplayName      string
	AvatarHandle     string
	Rank             Rank
	IsAdmin          bool
	NextRankDeadline *time.Time // set once on creation
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasAccess reports whether the profile grants access to member areas.
func (p Profile) HasAccess() bool { return p.IsAdmin || p.Rank != RankNone }

// Assignment returns the rank assignment currently stored on the profile.
func (p Profile) Assignment() RankAssignment {
	return RankAssignment{Rank: p.Rank, IsAdmin: p.IsAdmin}
}

// DaysUntilNextRank returns whole days left before the rank deadline, rounded up.
// It returns 0 when no deadline is set or the deadline has passed.
func (p Profile) DaysUntilNextRank(now time.Time) int {
	if p.NextRankDeadline == nil {
		return 0
	}
	left := p.NextRankDeadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

// Summary returns the client-facing projection of the profile.
func (p Profile) Summary() ProfileSummary {
	return ProfileSummary{
		AccountID:    p.AccountID,
		ExternalID:   p.ExternalID,
		DisplayName:  p.DisplayName,
		AvatarHandle: p.AvatarHandle,
		Rank:         p.Rank,
		IsAdmin:      p.IsAdmin,
	}
}

// ProfileSummary is what the callback returns to the browser.
type ProfileSummary struct {
	AccountID    string `json:"id"`
	ExternalID   string `json:"external_id"`
	DisplayName  string `json:"display_name"`
	AvatarHandle string `json:"avatar_handle"`
	Rank         Rank   `json:"rank"`
	IsAdmin      bool   `json:"is_admin"`
}

// ProfileInput carries the fields written by a resolution.
type ProfileInput struct {
	ExternalID       string
	DisplayName      string
	AvatarHandle     string
	Assignment       RankAssignment
	NextRankDeadline time.Time // applied only when the profile is created
}

// Session is the server-side record we persist for a signed-in account.
// ID is an opaque session identifier.
type Session struct {
	ID         string    `json:"id"`
	AccountID  string    `json:"account_id"`
	ExternalID string    `json:"external_id"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }
