package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

const (
	outcomeOK          = "ok"
	outcomeTransport   = "transport_error"
	outcomeDecode      = "decode_error"
	outcomeThrottled   = "throttled"
	outcomeRateLimited = "rate_limited"
	outcomeNotFound    = "not_found"
	outcomeUnauth      = "unauthorized"
	outcomeClientErr   = "client_error"
	outcomeServerErr   = "server_error"
	outcomeInvalid     = "invalid_grant"
)

// codeUnknownMember is the Discord JSON error code for a user who is not in the guild.
// Other 404 codes (10004 unknown guild, 10013 unknown user) point at configuration, not membership.
const codeUnknownMember = 10007

// StatusError is a non-2xx response from the Discord API. APICode is the "code" field of
// Discord's JSON error body, zero when the body carried none.
type StatusError struct {
	StatusCode int
	APICode    int
	Body       string
}

func newStatusError(status int, body []byte) *StatusError {
	e := &StatusError{StatusCode: status, Body: strings.TrimSpace(string(body))}
	var payload struct {
		Code int `json:"code"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.APICode = payload.Code
	}
	return e
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("discord: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("discord: unexpected status %d: %s", e.StatusCode, e.Body)
}

func statusOutcome(code int) string {
	switch {
	case code == http.StatusTooManyRequests:
		return outcomeRateLimited
	case code == http.StatusNotFound:
		return outcomeNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return outcomeUnauth
	case code >= 500:
		return outcomeServerErr
	default:
		return outcomeClientErr
	}
}

// classifyExchangeError maps token endpoint failures. Only a definite client rejection
// is InvalidGrant; rate limits, 5xx and transport failures are upstream errors.
func classifyExchangeError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		if re.ErrorCode == "invalid_grant" || re.ErrorCode == "invalid_request" {
			return fmt.Errorf("%w: %s", domainauth.ErrInvalidGrant, re.ErrorCode)
		}
		if re.Response != nil {
			code := re.Response.StatusCode
			if code == http.StatusBadRequest || code == http.StatusUnauthorized {
				return fmt.Errorf("%w: status %d", domainauth.ErrInvalidGrant, code)
			}
			return fmt.Errorf("%w: token endpoint status %d", domainauth.ErrUpstream, code)
		}
	}
	return fmt.Errorf("%w: %w", domainauth.ErrUpstream, err)
}

// exchangeOutcome labels a raw token endpoint error for metrics.
func exchangeOutcome(err error) string {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return outcomeTransport
	}
	if re.ErrorCode == "invalid_grant" {
		return outcomeInvalid
	}
	if re.Response != nil {
		return statusOutcome(re.Response.StatusCode)
	}
	return outcomeClientErr
}

func classifySelfError(status int, err error) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: %w", domainauth.ErrUnauthorized, err)
	}
	return fmt.Errorf("%w: %w", domainauth.ErrUpstream, err)
}

// classifyMemberError maps the bot member lookup. Only a 404 carrying Unknown Member is a
// definite "not a member". An unknown guild or a 401/403 means the bot configuration is
// wrong, which is an upstream problem.
func classifyMemberError(err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound && se.APICode == codeUnknownMember {
		return fmt.Errorf("%w: %w", domainauth.ErrNotAMember, err)
	}
	return fmt.Errorf("%w: %w", domainauth.ErrUpstream, err)
}
