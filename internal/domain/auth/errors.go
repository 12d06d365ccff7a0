package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGrant is returned when the authorization code is rejected by the provider.
	ErrInvalidGrant = errors.New("invalid grant")
	// ErrUnauthorized is returned when the access token cannot fetch the user.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotAMember is returned when the user is not in the configured guild.
	ErrNotAMember = errors.New("not a guild member")
	// ErrNoQualifyingRole is returned when none of the configured rank roles are held.
	ErrNoQualifyingRole = errors.New("no qualifying role")
	// ErrUpstream covers provider timeouts, rate limits and 5xx responses.
	ErrUpstream = errors.New("upstream unavailable")
	// ErrStore covers persistence failures.
	ErrStore = errors.New("store failure")
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoExternalID is returned when an account has no Discord ID on record.
	ErrNoExternalID = errors.New("no external id on record")
)

// Stage names a step of the identity resolution state machine.
type Stage string

const (
	StageCodeReceived      Stage = "code_received"
	StageTokenExchanged    Stage = "token_exchanged"
	StageIdentityFetched   Stage = "identity_fetched"
	StageMembershipFetched Stage = "membership_fetched"
	StageRankMapped        Stage = "rank_mapped"
	StageAccountResolved   Stage = "account_resolved"
	StageProfileUpserted   Stage = "profile_upserted"
	StageSessionIssued     Stage = "session_issued"
)

// ResolutionError records the last stage reached before a resolution stopped.
type ResolutionError struct {
	Stage Stage
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolution stopped after %s: %v", e.Stage, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Reason returns the stable client-facing code for err, or "" when err is not a known rejection.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrNotAMember):
		return "not_member"
	case errors.Is(err, ErrNoQualifyingRole):
		return "no_role"
	case errors.Is(err, ErrInvalidGrant):
		return "invalid_grant"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrUpstream):
		return "upstream_error"
	case errors.Is(err, ErrStore):
		return "store_error"
	case errors.Is(err, ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, ErrNoExternalID):
		return "no_external_id"
	default:
		return ""
	}
}
