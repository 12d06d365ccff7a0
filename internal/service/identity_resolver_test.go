package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/clanhall/gatekeeper/internal/adapters/authroles"
	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
	apperrors "github.com/clanhall/gatekeeper/internal/errors"
	"github.com/clanhall/gatekeeper/internal/mocks"
	authmocks "github.com/clanhall/gatekeeper/internal/mocks/auth"
)

var testRoles = authroles.RankMapper{HighStaff: "r-hs", Main: "r-main", Test: "r-test", Newbie: "r-new"}

type recordedResolution struct {
	flow    string
	outcome string
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recordedResolution
}

func (f *fakeRecorder) RecordResolution(flow, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, recordedResolution{flow, outcome})
}

type resolverFixture struct {
	resolver *IdentityResolver
	provider *authmocks.FakeIdentityProvider
	members  *authmocks.MemoryMemberStore
	sessions *authmocks.MemorySessionStore
	recorder *fakeRecorder
	now      time.Time
}

func newResolverFixture(t *testing.T, roleIDs ...string) *resolverFixture {
	t.Helper()
	f := &resolverFixture{
		provider: authmocks.NewFakeIdentityProvider("42", roleIDs...),
		members:  authmocks.NewMemoryMemberStore(),
		sessions: authmocks.NewMemorySessionStore(),
		recorder: &fakeRecorder{},
		now:      time.Now().UTC().Truncate(time.Second),
	}
	f.members.Now = func() time.Time { return f.now }
	f.resolver = NewIdentityResolver(IdentityResolverOptions{
		Provider:      f.provider,
		Roles:         testRoles,
		Members:       f.members,
		Sessions:      f.sessions,
		Verifications: authmocks.NewMemoryVerificationStore(),
		Metrics:       f.recorder,
		Now:           func() time.Time { return f.now },
	})
	return f
}

func requireStage(t *testing.T, err error, stage domainauth.Stage, sentinel error) {
	t.Helper()
	var rerr *domainauth.ResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, stage, rerr.Stage)
	assert.ErrorIs(t, err, sentinel)
}

func TestIdentityResolver_AuthorizeURL(t *testing.T) {
	f := newResolverFixture(t)

	res, err := f.resolver.AuthorizeURL("https://portal.test/callback")
	require.NoError(t, err)
	assert.Len(t, res.State, 32)
	assert.Contains(t, res.URL, "state="+res.State)

	other, err := f.resolver.AuthorizeURL("https://portal.test/callback")
	require.NoError(t, err)
	assert.NotEqual(t, res.State, other.State)

	_, err = f.resolver.AuthorizeURL("")
	assert.True(t, apperrors.IsValidation(err))
}

func TestIdentityResolver_Resolve_NewMember(t *testing.T) {
	f := newResolverFixture(t, "r-new", "r-main", "unrelated")

	res, err := f.resolver.Resolve(context.Background(), ResolveInput{Code: "abc", RedirectURI: "https://portal.test/cb"})
	require.NoError(t, err)

	assert.Equal(t, domainauth.RankMain, res.Profile.Rank)
	assert.False(t, res.Profile.IsAdmin)
	assert.Equal(t, "42", res.Profile.ExternalID)
	assert.Equal(t, "member-42", res.Profile.DisplayName)
	require.NotNil(t, res.Profile.NextRankDeadline)
	assert.Equal(t, f.now.Add(DefaultRankPeriod), *res.Profile.NextRankDeadline)

	assert.Equal(t, res.Profile.AccountID, res.Session.AccountID)
	assert.Equal(t, f.now.Add(DefaultSessionTTL), res.Session.ExpiresAt)
	assert.Equal(t, 1, f.sessions.Len())
	assert.NotEmpty(t, res.VerificationToken)

	sess, err := f.resolver.Verify(context.Background(), res.VerificationToken)
	require.NoError(t, err)
	assert.Equal(t, res.Session.ID, sess.ID)

	_, err = f.resolver.Verify(context.Background(), res.VerificationToken)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound, "verification tokens are single use")

	assert.Equal(t, []recordedResolution{{"callback", "success"}}, f.recorder.seen)
}

func TestIdentityResolver_Resolve_HighStaffIsAdmin(t *testing.T) {
	f := newResolverFixture(t, "r-new", "r-hs")

	res, err := f.resolver.Resolve(context.Background(), ResolveInput{Code: "abc"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RankHighStaff, res.Profile.Rank)
	assert.True(t, res.Profile.IsAdmin)
}

func TestIdentityResolver_Resolve_RepeatKeepsAccountAndDeadline(t *testing.T) {
	f := newResolverFixture(t, "r-new")
	ctx := context.Background()

	first, err := f.resolver.Resolve(ctx, ResolveInput{Code: "one"})
	require.NoError(t, err)

	f.now = f.now.Add(10 * 24 * time.Hour)
	f.provider.SetRoleIDs("r-test")
	second, err := f.resolver.Resolve(ctx, ResolveInput{Code: "two"})
	require.NoError(t, err)

	assert.Equal(t, 1, f.members.AccountCount())
	assert.Equal(t, first.Profile.AccountID, second.Profile.AccountID)
	assert.Equal(t, domainauth.RankTest, second.Profile.Rank)
	assert.Equal(t, *first.Profile.NextRankDeadline, *second.Profile.NextRankDeadline)
	assert.NotEqual(t, first.Session.ID, second.Session.ID)
}

func TestIdentityResolver_Resolve_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		roles    []string
		setup    func(*authmocks.FakeIdentityProvider)
		stage    domainauth.Stage
		sentinel error
		outcome  string
	}{
		{
			name:     "missing code",
			code:     "",
			stage:    domainauth.StageCodeReceived,
			sentinel: domainauth.ErrInvalidGrant,
			outcome:  "invalid_grant",
		},
		{
			name:     "rejected code",
			code:     "bad-code",
			stage:    domainauth.StageCodeReceived,
			sentinel: domainauth.ErrInvalidGrant,
			outcome:  "invalid_grant",
		},
		{
			name: "revoked token",
			code: "abc",
			setup: func(p *authmocks.FakeIdentityProvider) {
				p.FetchSelfFunc = func(context.Context, string) (domainauth.ExternalIdentity, error) {
					return domainauth.ExternalIdentity{}, domainauth.ErrUnauthorized
				}
			},
			stage:    domainauth.StageTokenExchanged,
			sentinel: domainauth.ErrUnauthorized,
			outcome:  "unauthorized",
		},
		{
			name: "not in guild",
			code: "abc",
			setup: func(p *authmocks.FakeIdentityProvider) {
				p.MembershipFunc = func(context.Context, string) (domainauth.GuildMembership, error) {
					return domainauth.GuildMembership{}, domainauth.ErrNotAMember
				}
			},
			stage:    domainauth.StageIdentityFetched,
			sentinel: domainauth.ErrNotAMember,
			outcome:  "not_member",
		},
		{
			name: "discord down",
			code: "abc",
			setup: func(p *authmocks.FakeIdentityProvider) {
				p.MembershipFunc = func(context.Context, string) (domainauth.GuildMembership, error) {
					return domainauth.GuildMembership{}, domainauth.ErrUpstream
				}
			},
			stage:    domainauth.StageIdentityFetched,
			sentinel: domainauth.ErrUpstream,
			outcome:  "upstream_error",
		},
		{
			name:     "no rank role",
			code:     "abc",
			roles:    []string{"unrelated"},
			stage:    domainauth.StageMembershipFetched,
			sentinel: domainauth.ErrNoQualifyingRole,
			outcome:  "no_role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResolverFixture(t, tt.roles...)
			if tt.setup != nil {
				tt.setup(f.provider)
			}

			res, err := f.resolver.Resolve(context.Background(), ResolveInput{Code: tt.code})
			assert.Nil(t, res)
			requireStage(t, err, tt.stage, tt.sentinel)
			assert.Equal(t, tt.outcome, domainauth.Reason(err))

			assert.Zero(t, f.members.AccountCount(), "rejections must not create accounts")
			assert.Zero(t, f.sessions.Len(), "rejections must not issue sessions")
			assert.Equal(t, []recordedResolution{{"callback", tt.outcome}}, f.recorder.seen)
		})
	}
}

func TestIdentityResolver_Resolve_EmptyCodeSkipsProvider(t *testing.T) {
	f := newResolverFixture(t, "r-main")

	_, err := f.resolver.Resolve(context.Background(), ResolveInput{})
	require.Error(t, err)
	assert.Zero(t, f.provider.Calls("ExchangeCode"))
}

func TestIdentityResolver_Resolve_RetriesConflictOnce(t *testing.T) {
	f := newResolverFixture(t, "r-main")
	f.members.CommitErr = func(attempt int) error {
		if attempt == 1 {
			return &apperrors.AppError{Code: apperrors.ErrCodeConflict, Message: "account already exists"}
		}
		return nil
	}

	res, err := f.resolver.Resolve(context.Background(), ResolveInput{Code: "abc"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RankMain, res.Profile.Rank)
	assert.Equal(t, 1, f.members.AccountCount())
}

func TestIdentityResolver_Resolve_StoreFailure(t *testing.T) {
	f := newResolverFixture(t, "r-main")
	attempts := 0
	f.members.CommitErr = func(int) error {
		attempts++
		return errors.New("connection refused")
	}

	_, err := f.resolver.Resolve(context.Background(), ResolveInput{Code: "abc"})
	requireStage(t, err, domainauth.StageRankMapped, domainauth.ErrStore)
	assert.Equal(t, 1, attempts, "only conflicts are retried")
	assert.Zero(t, f.sessions.Len())
}

func TestIdentityResolver_Resolve_ConcurrentFirstLogins(t *testing.T) {
	f := newResolverFixture(t, "r-new")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.resolver.Resolve(context.Background(), ResolveInput{Code: "abc"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.members.AccountCount())
	assert.Equal(t, 8, f.sessions.Len())
}

func TestIdentityResolver_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rank changes", func(t *testing.T) {
		f := newResolverFixture(t, "r-new")
		res, err := f.resolver.Resolve(ctx, ResolveInput{Code: "abc"})
		require.NoError(t, err)

		f.provider.SetRoleIDs("r-hs")
		got, err := f.resolver.Refresh(ctx, res.Session.ID)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RankAssignment{Rank: domainauth.RankHighStaff, IsAdmin: true}, got)

		p, err := f.members.GetProfile(ctx, res.Profile.AccountID)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RankHighStaff, p.Rank)
		assert.True(t, p.IsAdmin)
		assert.Equal(t, *res.Profile.NextRankDeadline, *p.NextRankDeadline)
	})

	t.Run("roles removed clears rank and keeps profile", func(t *testing.T) {
		f := newResolverFixture(t, "r-hs")
		res, err := f.resolver.Resolve(ctx, ResolveInput{Code: "abc"})
		require.NoError(t, err)

		f.provider.SetRoleIDs()
		_, err = f.resolver.Refresh(ctx, res.Session.ID)
		assert.ErrorIs(t, err, domainauth.ErrNoQualifyingRole)

		p, err := f.members.GetProfile(ctx, res.Profile.AccountID)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RankNone, p.Rank)
		assert.False(t, p.IsAdmin)
		assert.Equal(t, "member-42", p.DisplayName)

		auth, err := f.resolver.AuthContext(ctx, res.Session.ID)
		require.NoError(t, err)
		assert.True(t, auth.State.IsAuthenticated)
		assert.False(t, auth.State.HasAccess)
		assert.False(t, auth.State.IsAdmin)
	})

	t.Run("left guild clears rank", func(t *testing.T) {
		f := newResolverFixture(t, "r-main")
		res, err := f.resolver.Resolve(ctx, ResolveInput{Code: "abc"})
		require.NoError(t, err)

		f.provider.MembershipFunc = func(context.Context, string) (domainauth.GuildMembership, error) {
			return domainauth.GuildMembership{}, domainauth.ErrNotAMember
		}
		_, err = f.resolver.Refresh(ctx, res.Session.ID)
		assert.ErrorIs(t, err, domainauth.ErrNotAMember)

		p, err := f.members.GetProfile(ctx, res.Profile.AccountID)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RankNone, p.Rank)
	})

	t.Run("upstream failure writes nothing", func(t *testing.T) {
		f := newResolverFixture(t, "r-main")
		res, err := f.resolver.Resolve(ctx, ResolveInput{Code: "abc"})
		require.NoError(t, err)

		f.provider.MembershipFunc = func(context.Context, string) (domainauth.GuildMembership, error) {
			return domainauth.GuildMembership{}, domainauth.ErrUpstream
		}
		_, err = f.resolver.Refresh(ctx, res.Session.ID)
		assert.ErrorIs(t, err, domainauth.ErrUpstream)
		assert.Zero(t, f.members.RankWrites())

		p, err := f.members.GetProfile(ctx, res.Profile.AccountID)
		require.NoError(t, err)
		assert.Equal(t, domainauth.RankMain, p.Rank)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newResolverFixture(t, "r-main")
		_, err := f.resolver.Refresh(ctx, "missing")
		assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
		assert.Zero(t, f.provider.Calls("FetchGuildMembership"))
	})
}

func TestIdentityResolver_Refresh_NoExternalID(t *testing.T) {
	ctrl := gomock.NewController(t)
	members := mocks.NewMockMemberStore(ctrl)
	provider := mocks.NewMockIdentityProvider(ctrl)
	sessions := authmocks.NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, sessions.Save(ctx, domainauth.Session{ID: "s1", AccountID: "a1", ExpiresAt: time.Now().Add(time.Hour)}))
	members.EXPECT().GetAccount(gomock.Any(), "a1").Return(domainauth.Account{ID: "a1"}, nil)

	r := NewIdentityResolver(IdentityResolverOptions{Provider: provider, Roles: testRoles, Members: members, Sessions: sessions})
	_, err := r.Refresh(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrNoExternalID)
	assert.Equal(t, "no_external_id", domainauth.Reason(err))
}

func TestIdentityResolver_Refresh_StoreFailureOnRevoke(t *testing.T) {
	ctrl := gomock.NewController(t)
	members := mocks.NewMockMemberStore(ctrl)
	provider := mocks.NewMockIdentityProvider(ctrl)
	sessions := authmocks.NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, sessions.Save(ctx, domainauth.Session{ID: "s1", AccountID: "a1", ExpiresAt: time.Now().Add(time.Hour)}))
	members.EXPECT().GetAccount(gomock.Any(), "a1").Return(domainauth.Account{ID: "a1", ExternalID: "42"}, nil)
	provider.EXPECT().FetchGuildMembership(gomock.Any(), "42").Return(domainauth.GuildMembership{ExternalID: "42"}, nil)
	members.EXPECT().UpdateRank(gomock.Any(), "a1", domainauth.RankAssignment{}).
		Return(domainauth.Profile{}, errors.New("connection reset"))

	r := NewIdentityResolver(IdentityResolverOptions{Provider: provider, Roles: testRoles, Members: members, Sessions: sessions})
	_, err := r.Refresh(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrStore)
}

func TestIdentityResolver_GetSession_Expired(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()
	require.NoError(t, f.sessions.Save(ctx, domainauth.Session{ID: "s1", AccountID: "a1", ExpiresAt: time.Now().Add(time.Hour)}))

	f.now = time.Now().Add(2 * time.Hour)
	_, err := f.resolver.GetSession(ctx, "s1")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	assert.Zero(t, f.sessions.Len(), "expired sessions are removed")
}

func TestIdentityResolver_AuthContext(t *testing.T) {
	f := newResolverFixture(t, "r-test")
	ctx := context.Background()

	auth, err := f.resolver.AuthContext(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RequestAuth{}, auth)

	res, err := f.resolver.Resolve(ctx, ResolveInput{Code: "abc"})
	require.NoError(t, err)

	auth, err = f.resolver.AuthContext(ctx, res.Session.ID)
	require.NoError(t, err)
	require.NotNil(t, auth.Session)
	require.NotNil(t, auth.Profile)
	assert.Equal(t, res.Session.ID, auth.Session.ID)
	assert.Equal(t, res.Profile.AccountID, auth.Profile.AccountID)
	assert.Equal(t, domainauth.AuthState{IsAuthenticated: true, HasAccess: true, Rank: domainauth.RankTest}, auth.State)

	require.NoError(t, f.resolver.Logout(ctx, res.Session.ID))
	auth, err = f.resolver.AuthContext(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.Nil(t, auth.Session)
	assert.False(t, auth.State.IsAuthenticated)
}

func TestIdentityResolver_AuthContextSingleSessionRead(t *testing.T) {
	f := newResolverFixture(t, "r-main")
	ctx := context.Background()
	res, err := f.resolver.Resolve(ctx, ResolveInput{Code: "abc"})
	require.NoError(t, err)

	before := f.sessions.Gets()
	auth, err := f.resolver.AuthContext(ctx, res.Session.ID)
	require.NoError(t, err)
	require.NotNil(t, auth.Session)
	assert.Equal(t, before+1, f.sessions.Gets())
}

func TestIdentityResolver_ListMembers(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()
	f.members.SetProfile(domainauth.Profile{AccountID: "a1", ExternalID: "1", DisplayName: "bravo", Rank: domainauth.RankMain})
	f.members.SetProfile(domainauth.Profile{AccountID: "a2", ExternalID: "2", DisplayName: "alpha", Rank: domainauth.RankNewbie})
	f.members.SetProfile(domainauth.Profile{AccountID: "a3", ExternalID: "3", DisplayName: "charlie"})

	page, err := f.resolver.ListMembers(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Members, 2)
	assert.Equal(t, "alpha", page.Members[0].DisplayName)
	assert.Equal(t, "bravo", page.Members[1].DisplayName)
	assert.Equal(t, DefaultMembersLimit, page.Limit)
	assert.Zero(t, page.Offset)

	page, err = f.resolver.ListMembers(ctx, 10_000, -3)
	require.NoError(t, err)
	assert.Equal(t, MaxMembersLimit, page.Limit)
	assert.Zero(t, page.Offset)

	page, err = f.resolver.ListMembers(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page.Members, 1)
	assert.Equal(t, "bravo", page.Members[0].DisplayName)
	assert.Equal(t, 1, page.Limit)
	assert.Equal(t, 1, page.Offset)
}
