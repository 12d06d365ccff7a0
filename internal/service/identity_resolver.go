package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
	apperrors "github.com/clanhall/gatekeeper/internal/errors"
	"github.com/clanhall/gatekeeper/internal/observability/metrics"
	"github.com/clanhall/gatekeeper/internal/ports"
)

const (
	DefaultSessionTTL      = 7 * 24 * time.Hour
	DefaultVerificationTTL = 10 * time.Minute
	DefaultRankPeriod      = 30 * 24 * time.Hour
	DefaultMembersLimit    = 50
	MaxMembersLimit        = 500
)

// ResolutionRecorder receives one observation per finished callback or refresh.
type ResolutionRecorder interface {
	RecordResolution(flow, outcome string, d time.Duration)
}

// IdentityResolverOptions groups dependencies for IdentityResolver.
type IdentityResolverOptions struct {
	Provider      ports.IdentityProvider
	Roles         ports.RoleMapper
	Members       ports.MemberStore
	Sessions      ports.SessionStore
	Verifications ports.VerificationStore // optional; no verification token is issued when nil
	Metrics       ResolutionRecorder      // optional
	Logger        *slog.Logger

	SessionTTL      time.Duration
	VerificationTTL time.Duration
	RankPeriod      time.Duration
	Now             func() time.Time
}

// IdentityResolver turns a Discord authorization code into an account, a ranked profile
// and a session, and re-derives ranks for existing sessions.
type IdentityResolver struct {
	provider      ports.IdentityProvider
	roles         ports.RoleMapper
	members       ports.MemberStore
	sessions      ports.SessionStore
	verifications ports.VerificationStore
	metrics       ResolutionRecorder
	logger        *slog.Logger

	sessionTTL      time.Duration
	verificationTTL time.Duration
	rankPeriod      time.Duration
	now             func() time.Time
}

// NewIdentityResolver constructs an IdentityResolver, filling zero durations with defaults.
func NewIdentityResolver(opts IdentityResolverOptions) *IdentityResolver {
	r := &IdentityResolver{
		provider:        opts.Provider,
		roles:           opts.Roles,
		members:         opts.Members,
		sessions:        opts.Sessions,
		verifications:   opts.Verifications,
		metrics:         opts.Metrics,
		logger:          opts.Logger,
		sessionTTL:      opts.SessionTTL,
		verificationTTL: opts.VerificationTTL,
		rankPeriod:      opts.RankPeriod,
		now:             opts.Now,
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With("component", "identity_resolver")
	if r.sessionTTL <= 0 {
		r.sessionTTL = DefaultSessionTTL
	}
	if r.verificationTTL <= 0 {
		r.verificationTTL = DefaultVerificationTTL
	}
	if r.rankPeriod <= 0 {
		r.rankPeriod = DefaultRankPeriod
	}
	if r.now == nil {
		r.now = func() time.Time { return time.Now().UTC() }
	}
	return r
}

// AuthorizeResult is the consent URL plus the state value embedded in it.
type AuthorizeResult struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// AuthorizeURL builds the Discord consent URL for redirectURI with a fresh state value.
func (r *IdentityResolver) AuthorizeURL(redirectURI string) (*AuthorizeResult, error) {
	if redirectURI == "" {
		return nil, apperrors.ValidationField("redirect_uri", "redirect_uri is required")
	}
	state, err := randomHex(16)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	u, err := r.provider.AuthorizeURL(redirectURI, state)
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ErrCodeValidation, "build authorize url")
	}
	return &AuthorizeResult{URL: u, State: state}, nil
}

// ResolveInput carries the callback parameters.
type ResolveInput struct {
	Code        string
	RedirectURI string
}

// ResolveResult is everything a successful callback produced.
type ResolveResult struct {
	Session           domainauth.Session
	Profile           domainauth.Profile
	VerificationToken string // empty when no verification store is configured
}

// Resolve runs the callback state machine. Failures are returned as *domainauth.ResolutionError
// wrapping one of the domain sentinels; nothing is persisted unless a rank was mapped.
func (r *IdentityResolver) Resolve(ctx context.Context, in ResolveInput) (*ResolveResult, error) {
	start := r.now()

	if in.Code == "" {
		return nil, r.reject(ctx, metrics.FlowCallback, start, domainauth.StageCodeReceived, "",
			fmt.Errorf("%w: missing authorization code", domainauth.ErrInvalidGrant))
	}

	token, err := r.provider.ExchangeCode(ctx, in.Code, in.RedirectURI)
	if err != nil {
		return nil, r.reject(ctx, metrics.FlowCallback, start, domainauth.StageCodeReceived, "", err)
	}

	identity, err := r.provider.FetchSelf(ctx, token)
	if err != nil {
		return nil, r.reject(ctx, metrics.FlowCallback, start, domainauth.StageTokenExchanged, "", err)
	}

	membership, err := r.provider.FetchGuildMembership(ctx, identity.ExternalID)
	if err != nil {
		return nil, r.reject(ctx, metrics.FlowCallback, start, domainauth.StageIdentityFetched, identity.ExternalID, err)
	}

	assignment, ok := r.roles.Map(membership.RoleIDs)
	if !ok {
		return nil, r.reject(ctx, metrics.FlowCallback, start, domainauth.StageMembershipFetched, identity.ExternalID,
			domainauth.ErrNoQualifyingRole)
	}

	_, profile, err := r.commit(ctx, domainauth.ProfileInput{
		ExternalID:       identity.ExternalID,
		DisplayName:      identity.DisplayName,
		AvatarHandle:     identity.AvatarHandle,
		Assignment:       assignment,
		NextRankDeadline: start.Add(r.rankPeriod),
	})
	if err != nil {
		return nil, r.reject(ctx, metrics.FlowCallback, start, domainauth.StageRankMapped, identity.ExternalID,
			fmt.Errorf("%w: %w", domainauth.ErrStore, err))
	}

	sess := domainauth.Session{
		ID:         uuid.NewString(),
		AccountID:  profile.AccountID,
		ExternalID: profile.ExternalID,
		ExpiresAt:  start.Add(r.sessionTTL),
	}
	if err := r.sessions.Save(ctx, sess); err != nil {
		return nil, r.reject(ctx, metrics.FlowCallback, start, domainauth.StageProfileUpserted, identity.ExternalID,
			fmt.Errorf("%w: save session: %w", domainauth.ErrStore, err))
	}

	res := &ResolveResult{Session: sess, Profile: profile}
	if r.verifications != nil {
		vt, err := r.issueVerification(ctx, sess.ID)
		if err != nil {
			return nil, r.reject(ctx, metrics.FlowCallback, start, domainauth.StageSessionIssued, identity.ExternalID,
				fmt.Errorf("%w: issue verification token: %w", domainauth.ErrStore, err))
		}
		res.VerificationToken = vt
	}

	r.record(metrics.FlowCallback, metrics.OutcomeSuccess, start)
	r.logger.InfoContext(ctx, "identity resolved",
		"external_id", profile.ExternalID,
		"account_id", profile.AccountID,
		"rank", string(profile.Rank),
		"is_admin", profile.IsAdmin)
	return res, nil
}

// commit persists the resolution, retrying once when a concurrent first login won the insert race.
func (r *IdentityResolver) commit(ctx context.Context, in domainauth.ProfileInput) (domainauth.Account, domainauth.Profile, error) {
	acc, profile, err := r.members.CommitResolution(ctx, in)
	if err != nil && apperrors.IsConflict(err) {
		r.logger.WarnContext(ctx, "commit conflict, retrying", "external_id", in.ExternalID, "error", err)
		acc, profile, err = r.members.CommitResolution(ctx, in)
	}
	return acc, profile, err
}

func (r *IdentityResolver) issueVerification(ctx context.Context, sessionID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	if err := r.verifications.Issue(ctx, token, sessionID, r.verificationTTL); err != nil {
		return "", err
	}
	return token, nil
}

// Refresh re-derives the rank for the session's account from live guild roles.
// Losing membership or every rank role clears the rank and admin flag and returns the rejection;
// upstream failures write nothing.
func (r *IdentityResolver) Refresh(ctx context.Context, sessionID string) (domainauth.RankAssignment, error) {
	start := r.now()

	sess, err := r.GetSession(ctx, sessionID)
	if err != nil {
		r.record(metrics.FlowRefresh, outcome(err), start)
		return domainauth.RankAssignment{}, err
	}

	acc, err := r.members.GetAccount(ctx, sess.AccountID)
	switch {
	case apperrors.IsNotFound(err):
		r.record(metrics.FlowRefresh, "session_not_found", start)
		return domainauth.RankAssignment{}, fmt.Errorf("%w: account %s", domainauth.ErrSessionNotFound, sess.AccountID)
	case err != nil:
		r.record(metrics.FlowRefresh, "store_error", start)
		return domainauth.RankAssignment{}, fmt.Errorf("%w: get account: %w", domainauth.ErrStore, err)
	case acc.ExternalID == "":
		r.record(metrics.FlowRefresh, "no_external_id", start)
		return domainauth.RankAssignment{}, domainauth.ErrNoExternalID
	}

	membership, err := r.provider.FetchGuildMembership(ctx, acc.ExternalID)
	if err != nil && !errors.Is(err, domainauth.ErrNotAMember) {
		r.record(metrics.FlowRefresh, outcome(err), start)
		r.logger.WarnContext(ctx, "refresh failed", "external_id", acc.ExternalID, "reason", outcome(err), "error", err)
		return domainauth.RankAssignment{}, err
	}

	assignment, ok := domainauth.RankAssignment{}, false
	if err == nil {
		assignment, ok = r.roles.Map(membership.RoleIDs)
	}
	if !ok {
		rejection := domainauth.ErrNoQualifyingRole
		if err != nil {
			rejection = domainauth.ErrNotAMember
		}
		if _, uerr := r.members.UpdateRank(ctx, acc.ID, domainauth.RankAssignment{}); uerr != nil {
			r.record(metrics.FlowRefresh, "store_error", start)
			return domainauth.RankAssignment{}, fmt.Errorf("%w: revoke rank: %w", domainauth.ErrStore, uerr)
		}
		r.record(metrics.FlowRefresh, domainauth.Reason(rejection), start)
		r.logger.InfoContext(ctx, "rank revoked", "external_id", acc.ExternalID, "reason", domainauth.Reason(rejection))
		return domainauth.RankAssignment{}, rejection
	}

	if _, err := r.members.UpdateRank(ctx, acc.ID, assignment); err != nil {
		r.record(metrics.FlowRefresh, "store_error", start)
		return domainauth.RankAssignment{}, fmt.Errorf("%w: update rank: %w", domainauth.ErrStore, err)
	}
	r.record(metrics.FlowRefresh, metrics.OutcomeSuccess, start)
	r.logger.InfoContext(ctx, "rank refreshed",
		"external_id", acc.ExternalID, "rank", string(assignment.Rank), "is_admin", assignment.IsAdmin)
	return assignment, nil
}

// GetSession returns a live session. Unknown and expired sessions yield domainauth.ErrSessionNotFound.
func (r *IdentityResolver) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, domainauth.ErrSessionNotFound
	}
	sess, err := r.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainauth.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: get session: %w", domainauth.ErrStore, err)
	}
	if sess.Expired(r.now()) {
		if derr := r.sessions.Delete(ctx, sessionID); derr != nil {
			r.logger.WarnContext(ctx, "delete expired session", "error", derr)
		}
		return nil, fmt.Errorf("%w: expired", domainauth.ErrSessionNotFound)
	}
	return &sess, nil
}

// Verify consumes a one-time verification token and returns the session it was issued for.
func (r *IdentityResolver) Verify(ctx context.Context, token string) (*domainauth.Session, error) {
	if r.verifications == nil || token == "" {
		return nil, domainauth.ErrSessionNotFound
	}
	sessionID, err := r.verifications.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, domainauth.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: consume verification token: %w", domainauth.ErrStore, err)
	}
	return r.GetSession(ctx, sessionID)
}

// Logout removes a session. An empty ID is a no-op.
func (r *IdentityResolver) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := r.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// AuthContext derives the auth state for sessionID. A missing session yields the anonymous
// state without error; a session whose profile is gone is authenticated without access.
func (r *IdentityResolver) AuthContext(ctx context.Context, sessionID string) (domainauth.RequestAuth, error) {
	sess, err := r.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainauth.ErrSessionNotFound) {
			return domainauth.RequestAuth{State: domainauth.NewAuthState(nil, nil)}, nil
		}
		return domainauth.RequestAuth{}, err
	}
	out := domainauth.RequestAuth{Session: sess}
	profile, err := r.members.GetProfile(ctx, sess.AccountID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			out.State = domainauth.NewAuthState(sess, nil)
			return out, nil
		}
		return domainauth.RequestAuth{}, fmt.Errorf("%w: get profile: %w", domainauth.ErrStore, err)
	}
	out.Profile = &profile
	out.State = domainauth.NewAuthState(sess, &profile)
	return out, nil
}

// MemberPage is one page of the member listing with the limit and offset actually applied.
type MemberPage struct {
	Members []domainauth.Profile
	Limit   int
	Offset  int
}

// ListMembers returns profiles that currently grant access. A non-positive limit selects
// DefaultMembersLimit; larger limits are capped at MaxMembersLimit.
func (r *IdentityResolver) ListMembers(ctx context.Context, limit, offset int) (MemberPage, error) {
	if limit <= 0 {
		limit = DefaultMembersLimit
	}
	page := MemberPage{Limit: min(limit, MaxMembersLimit), Offset: max(offset, 0)}
	out, err := r.members.ListProfiles(ctx, ports.ListProfilesOptions{Limit: page.Limit, Offset: page.Offset, OnlyAccess: true})
	if err != nil {
		return MemberPage{}, fmt.Errorf("%w: list profiles: %w", domainauth.ErrStore, err)
	}
	page.Members = out
	return page, nil
}

func (r *IdentityResolver) reject(ctx context.Context, flow string, start time.Time, stage domainauth.Stage, externalID string, err error) error {
	reason := outcome(err)
	r.record(flow, reason, start)
	level := slog.LevelInfo
	if errors.Is(err, domainauth.ErrUpstream) || errors.Is(err, domainauth.ErrStore) {
		level = slog.LevelWarn
	}
	r.logger.Log(ctx, level, "identity resolution rejected",
		"flow", flow,
		"stage", string(stage),
		"reason", reason,
		"external_id", externalID,
		"error", err)
	return &domainauth.ResolutionError{Stage: stage, Err: err}
}

func (r *IdentityResolver) record(flow, outcome string, start time.Time) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordResolution(flow, outcome, r.now().Sub(start))
}

func outcome(err error) string {
	if reason := domainauth.Reason(err); reason != "" {
		return reason
	}
	return "error"
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
