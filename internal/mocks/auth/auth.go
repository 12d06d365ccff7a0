package auth

// Package auth contains hand-written, concurrency-safe test doubles for the identity ports.
// They are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
	apperrors "github.com/clanhall/gatekeeper/internal/errors"
	"github.com/clanhall/gatekeeper/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider  = (*FakeIdentityProvider)(nil)
	_ ports.MemberStore       = (*MemoryMemberStore)(nil)
	_ ports.SessionStore      = (*MemorySessionStore)(nil)
	_ ports.VerificationStore = (*MemoryVerificationStore)(nil)
)

// ErrNotFound is returned by the in-memory stores when an entity is not present.
var ErrNotFound = fmt.Errorf("mock: %w", domainauth.ErrSessionNotFound)

// FakeIdentityProvider simulates Discord. Func fields override the default behavior, which
// accepts any non-empty code and reports Identity with RoleIDs.
type FakeIdentityProvider struct {
	ExchangeFunc   func(ctx context.Context, code, redirectURI string) (string, error)
	FetchSelfFunc  func(ctx context.Context, token string) (domainauth.ExternalIdentity, error)
	MembershipFunc func(ctx context.Context, externalID string) (domainauth.GuildMembership, error)

	mu       sync.Mutex
	Identity domainauth.ExternalIdentity
	RoleIDs  []string
	calls    map[string]int
}

// NewFakeIdentityProvider creates a provider for one guild member holding roleIDs.
func NewFakeIdentityProvider(externalID string, roleIDs ...string) *FakeIdentityProvider {
	return &FakeIdentityProvider{
		Identity: domainauth.ExternalIdentity{
			ExternalID:   externalID,
			DisplayName:  "member-" + externalID,
			AvatarHandle: "avatar-" + externalID,
		},
		RoleIDs: roleIDs,
	}
}

// SetRoleIDs replaces the roles reported by the default membership behavior.
func (f *FakeIdentityProvider) SetRoleIDs(roleIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RoleIDs = roleIDs
}

// Calls returns how many times the named method ran.
func (f *FakeIdentityProvider) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *FakeIdentityProvider) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[method]++
}

func (f *FakeIdentityProvider) AuthorizeURL(redirectURI, state string) (string, error) {
	if redirectURI == "" {
		return "", errors.New("redirect URI is required")
	}
	return "https://discord.test/oauth2/authorize?redirect_uri=" + redirectURI + "&state=" + state, nil
}

func (f *FakeIdentityProvider) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	f.record("ExchangeCode")
	if f.ExchangeFunc != nil {
		return f.ExchangeFunc(ctx, code, redirectURI)
	}
	if code == "" || strings.HasPrefix(code, "bad") {
		return "", domainauth.ErrInvalidGrant
	}
	return "token-" + code, nil
}

func (f *FakeIdentityProvider) FetchSelf(ctx context.Context, token string) (domainauth.ExternalIdentity, error) {
	f.record("FetchSelf")
	if f.FetchSelfFunc != nil {
		return f.FetchSelfFunc(ctx, token)
	}
	if !strings.HasPrefix(token, "token-") {
		return domainauth.ExternalIdentity{}, domainauth.ErrUnauthorized
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Identity, nil
}

func (f *FakeIdentityProvider) FetchGuildMembership(ctx context.Context, externalID string) (domainauth.GuildMembership, error) {
	f.record("FetchGuildMembership")
	if f.MembershipFunc != nil {
		return f.MembershipFunc(ctx, externalID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if externalID != f.Identity.ExternalID {
		return domainauth.GuildMembership{}, domainauth.ErrNotAMember
	}
	return domainauth.GuildMembership{ExternalID: externalID, RoleIDs: slices.Clone(f.RoleIDs)}, nil
}

// MemoryMemberStore is an in-memory MemberStore with the same create-or-get semantics as Postgres.
type MemoryMemberStore struct {
	// CommitErr, when set, is consulted before each commit; a non-nil result fails that commit.
	CommitErr func(attempt int) error
	Now       func() time.Time

	mu         sync.Mutex
	accounts   map[string]domainauth.Account // by external id
	profiles   map[string]domainauth.Profile // by account id
	commits    int
	rankWrites int
}

// NewMemoryMemberStore creates an empty store.
func NewMemoryMemberStore() *MemoryMemberStore {
	return &MemoryMemberStore{
		accounts: map[string]domainauth.Account{},
		profiles: map[string]domainauth.Profile{},
		Now:      time.Now,
	}
}

func (m *MemoryMemberStore) CommitResolution(_ context.Context, in domainauth.ProfileInput) (domainauth.Account, domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	if m.CommitErr != nil {
		if err := m.CommitErr(m.commits); err != nil {
			return domainauth.Account{}, domainauth.Profile{}, err
		}
	}
	if in.ExternalID == "" {
		return domainauth.Account{}, domainauth.Profile{}, errors.New("external_id is required")
	}

	now := m.Now()
	acc, ok := m.accounts[in.ExternalID]
	if !ok {
		acc = domainauth.Account{ID: uuid.NewString(), ExternalID: in.ExternalID, CreatedAt: now}
		m.accounts[in.ExternalID] = acc
	}

	p, ok := m.profiles[acc.ID]
	if !ok {
		p = domainauth.Profile{AccountID: acc.ID, ExternalID: acc.ExternalID, CreatedAt: now}
		if !in.NextRankDeadline.IsZero() {
			d := in.NextRankDeadline
			p.NextRankDeadline = &d
		}
	}
	p.DisplayName = in.DisplayName
	p.AvatarHandle = in.AvatarHandle
	p.Rank = in.Assignment.Rank
	p.IsAdmin = in.Assignment.IsAdmin
	p.UpdatedAt = now
	m.profiles[acc.ID] = p
	return acc, p, nil
}

func (m *MemoryMemberStore) GetAccount(_ context.Context, accountID string) (domainauth.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acc := range m.accounts {
		if acc.ID == accountID {
			return acc, nil
		}
	}
	return domainauth.Account{}, apperrors.NotFoundf("account %s not found", accountID)
}

func (m *MemoryMemberStore) GetProfile(_ context.Context, accountID string) (domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[accountID]
	if !ok {
		return domainauth.Profile{}, apperrors.NotFoundf("profile for account %s not found", accountID)
	}
	return p, nil
}

func (m *MemoryMemberStore) GetProfileByExternalID(ctx context.Context, externalID string) (domainauth.Profile, error) {
	m.mu.Lock()
	acc, ok := m.accounts[externalID]
	m.mu.Unlock()
	if !ok {
		return domainauth.Profile{}, apperrors.NotFoundf("profile for external id %s not found", externalID)
	}
	return m.GetProfile(ctx, acc.ID)
}

func (m *MemoryMemberStore) UpdateRank(_ context.Context, accountID string, a domainauth.RankAssignment) (domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[accountID]
	if !ok {
		return domainauth.Profile{}, apperrors.NotFoundf("profile for account %s not found", accountID)
	}
	m.rankWrites++
	p.Rank = a.Rank
	p.IsAdmin = a.IsAdmin
	p.UpdatedAt = m.Now()
	m.profiles[accountID] = p
	return p, nil
}

func (m *MemoryMemberStore) ListProfiles(_ context.Context, opts ports.ListProfilesOptions) ([]domainauth.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domainauth.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		if opts.OnlyAccess && !p.HasAccess() {
			continue
		}
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b domainauth.Profile) int {
		return strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName))
	})
	if opts.Offset > 0 {
		out = out[min(opts.Offset, len(out)):]
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// AccountCount returns the number of stored accounts.
func (m *MemoryMemberStore) AccountCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

// RankWrites returns how many UpdateRank calls modified a profile.
func (m *MemoryMemberStore) RankWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rankWrites
}

// SetProfile stores p directly, creating its account if needed.
func (m *MemoryMemberStore) SetProfile(p domainauth.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[p.ExternalID]; !ok {
		m.accounts[p.ExternalID] = domainauth.Account{ID: p.AccountID, ExternalID: p.ExternalID, CreatedAt: p.CreatedAt}
	}
	m.profiles[p.AccountID] = p
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	gets     int
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	sess, ok := m.sessions[id]
	if !ok || sess.Expired(time.Now()) {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Gets returns how many times Get ran.
func (m *MemorySessionStore) Gets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// MemoryVerificationStore is an in-memory one-time token store.
type MemoryVerificationStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewMemoryVerificationStore creates an empty token store.
func NewMemoryVerificationStore() *MemoryVerificationStore {
	return &MemoryVerificationStore{tokens: map[string]string{}}
}

func (m *MemoryVerificationStore) Issue(_ context.Context, token, sessionID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[token]; ok {
		return errors.New("verification token already issued")
	}
	m.tokens[token] = sessionID
	return nil
}

func (m *MemoryVerificationStore) Consume(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sid, ok := m.tokens[token]
	if !ok {
		return "", ErrNotFound
	}
	delete(m.tokens, token)
	return sid, nil
}
