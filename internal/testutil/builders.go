// Package testutil provides testing utilities and helpers for gatekeeper packages.
package testutil

import (
	"time"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

// ProfileInputBuilder provides a fluent interface for building ProfileInput values in tests.
type ProfileInputBuilder struct {
	in domainauth.ProfileInput
}

// NewProfileInput creates a builder for a Newbie member with a 30 day deadline from TestTime.
func NewProfileInput(externalID string) *ProfileInputBuilder {
	return &ProfileInputBuilder{
		in: domainauth.ProfileInput{
			ExternalID:       externalID,
			DisplayName:      "member-" + externalID,
			Assignment:       domainauth.RankAssignment{Rank: domainauth.RankNewbie},
			NextRankDeadline: TestTime().Add(30 * 24 * time.Hour),
		},
	}
}

// WithDisplayName sets the display name.
func (b *ProfileInputBuilder) WithDisplayName(name string) *ProfileInputBuilder {
	b.in.DisplayName = name
	return b
}

// WithAvatar sets the avatar handle.
func (b *ProfileInputBuilder) WithAvatar(handle string) *ProfileInputBuilder {
	b.in.AvatarHandle = handle
	return b
}

// WithRank sets the rank; HighStaff also sets the admin flag.
func (b *ProfileInputBuilder) WithRank(rank domainauth.Rank) *ProfileInputBuilder {
	b.in.Assignment = domainauth.RankAssignment{Rank: rank, IsAdmin: rank == domainauth.RankHighStaff}
	return b
}

// WithDeadline sets the deadline used when the profile is created.
func (b *ProfileInputBuilder) WithDeadline(t time.Time) *ProfileInputBuilder {
	b.in.NextRankDeadline = t
	return b
}

// Build returns the input.
func (b *ProfileInputBuilder) Build() domainauth.ProfileInput {
	return b.in
}
