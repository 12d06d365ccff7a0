package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
	apperrors "github.com/clanhall/gatekeeper/internal/errors"
	"github.com/clanhall/gatekeeper/internal/ports"
)

func TestFakeIdentityProvider_Defaults(t *testing.T) {
	p := NewFakeIdentityProvider("42", "main")
	ctx := context.Background()

	tok, err := p.ExchangeCode(ctx, "ok", "")
	require.NoError(t, err)
	id, err := p.FetchSelf(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, "42", id.ExternalID)

	m, err := p.FetchGuildMembership(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, m.RoleIDs)

	_, err = p.FetchGuildMembership(ctx, "43")
	assert.ErrorIs(t, err, domainauth.ErrNotAMember)
	_, err = p.ExchangeCode(ctx, "bad-code", "")
	assert.ErrorIs(t, err, domainauth.ErrInvalidGrant)
	assert.Equal(t, 2, p.Calls("FetchGuildMembership"))
}

func TestMemoryMemberStore_CreateOrGetConcurrent(t *testing.T) {
	store := NewMemoryMemberStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := store.CommitResolution(ctx, domainauth.ProfileInput{ExternalID: "x", DisplayName: "X"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, store.AccountCount())
}

func TestMemoryMemberStore_DeadlineOnCreateOnly(t *testing.T) {
	store := NewMemoryMemberStore()
	ctx := context.Background()
	d1 := time.Now().Add(time.Hour)

	_, p1, err := store.CommitResolution(ctx, domainauth.ProfileInput{ExternalID: "x", NextRankDeadline: d1})
	require.NoError(t, err)
	_, p2, err := store.CommitResolution(ctx, domainauth.ProfileInput{ExternalID: "x", NextRankDeadline: d1.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, *p1.NextRankDeadline, *p2.NextRankDeadline)

	_, err = store.UpdateRank(ctx, "missing", domainauth.RankAssignment{})
	assert.True(t, apperrors.IsNotFound(err))

	list, err := store.ListProfiles(ctx, ports.ListProfilesOptions{OnlyAccess: true})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s", ExpiresAt: time.Now().Add(-time.Second)}))
	_, err := store.Get(ctx, "s")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestMemoryVerificationStore_ConsumeOnce(t *testing.T) {
	store := NewMemoryVerificationStore()
	ctx := context.Background()
	require.NoError(t, store.Issue(ctx, "t", "s", time.Minute))
	sid, err := store.Consume(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, "s", sid)
	_, err = store.Consume(ctx, "t")
	assert.ErrorIs(t, err, ErrNotFound)
}
