package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
	apperrors "github.com/clanhall/gatekeeper/internal/errors"
	"github.com/clanhall/gatekeeper/internal/service"
)

// IdentityService is the subset of service.IdentityResolver used by the HTTP layer.
type IdentityService interface {
	AuthContextResolver
	AuthorizeURL(redirectURI string) (*service.AuthorizeResult, error)
	Resolve(ctx context.Context, in service.ResolveInput) (*service.ResolveResult, error)
	Refresh(ctx context.Context, sessionID string) (domainauth.RankAssignment, error)
	Verify(ctx context.Context, token string) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
	ListMembers(ctx context.Context, limit, offset int) (service.MemberPage, error)
}

var _ IdentityService = (*service.IdentityResolver)(nil)

// DiscordAuthHandlers serves /api/discord-auth, dispatching on the "action" query parameter.
type DiscordAuthHandlers struct {
	Svc     IdentityService
	BaseURL string // public base URL used to build verification links
	Logger  *slog.Logger
}

func (h *DiscordAuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// ServeHTTP handles GET ?action=get_oauth_url, POST ?action=callback and POST ?action=refresh_roles.
func (h *DiscordAuthHandlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	switch action {
	case "get_oauth_url":
		if requireMethod(w, r, http.MethodGet) {
			h.GetOAuthURL(w, r)
		}
	case "callback":
		if requireMethod(w, r, http.MethodPost) {
			h.Callback(w, r)
		}
	case "refresh_roles":
		if requireMethod(w, r, http.MethodPost) {
			h.RefreshRoles(w, r)
		}
	default:
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: ErrCodeInvalidAction,
			Message: "invalid action",
		})
	}
}

// GetOAuthURL returns the Discord consent URL for redirect_uri.
func (h *DiscordAuthHandlers) GetOAuthURL(w http.ResponseWriter, r *http.Request) {
	redirectURI := r.URL.Query().Get("redirect_uri")
	if redirectURI == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: ErrCodeMissingParams,
			Message: "redirect_uri is required",
		})
		return
	}
	res, err := h.Svc.AuthorizeURL(redirectURI)
	if err != nil {
		writeResolutionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

type callbackRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

type callbackResponse struct {
	Success         bool                      `json:"success"`
	User            domainauth.ProfileSummary `json:"user"`
	VerificationURL string                    `json:"verification_url,omitempty"`
	SessionToken    string                    `json:"session_token"`
	ExpiresAt       time.Time                 `json:"expires_at"`
}

// Callback resolves an authorization code into a ranked profile and a session.
func (h *DiscordAuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" || req.RedirectURI == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: ErrCodeMissingParams,
			Message: "code and redirect_uri are required",
		})
		return
	}

	res, err := h.Svc.Resolve(r.Context(), service.ResolveInput{Code: req.Code, RedirectURI: req.RedirectURI})
	if err != nil {
		writeResolutionError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, callbackResponse{
		Success:         true,
		User:            res.Profile.Summary(),
		VerificationURL: h.verificationURL(res.VerificationToken),
		SessionToken:    res.Session.ID,
		ExpiresAt:       res.Session.ExpiresAt,
	})
}

func (h *DiscordAuthHandlers) verificationURL(token string) string {
	if token == "" {
		return ""
	}
	q := url.Values{"token": {token}}
	return strings.TrimRight(h.BaseURL, "/") + "/auth/verify?" + q.Encode()
}

type refreshResponse struct {
	Success bool `json:"success"`
	domainauth.RankAssignment
}

// RefreshRoles re-derives the caller's rank from live Discord roles.
func (h *DiscordAuthHandlers) RefreshRoles(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	if token == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: ErrCodeUnauthorized,
			Message: "Unauthorized",
		})
		return
	}
	assignment, err := h.Svc.Refresh(r.Context(), token)
	if err != nil {
		writeResolutionError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, refreshResponse{Success: true, RankAssignment: assignment})
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	WriteError(w, ErrorParams{
		Code:    http.StatusMethodNotAllowed,
		ErrCode: ErrCodeMethodNotAllowed,
		Message: "use " + method,
	})
	return false
}

// writeResolutionError maps domain and store errors to an HTTP status and a stable error code.
// The two access refusals keep distinct codes and remediation messages.
func writeResolutionError(w http.ResponseWriter, err error) {
	p := ErrorParams{Err: err, ErrCode: domainauth.Reason(err)}
	switch {
	case errors.Is(err, domainauth.ErrNotAMember):
		p.Code, p.Message = http.StatusForbidden, MessageNotMember
	case errors.Is(err, domainauth.ErrNoQualifyingRole):
		p.Code, p.Message = http.StatusForbidden, MessageNoRole
	case errors.Is(err, domainauth.ErrInvalidGrant):
		p.Code, p.Message = http.StatusBadRequest, "Failed to exchange code for token"
	case errors.Is(err, domainauth.ErrUnauthorized):
		p.Code, p.Message = http.StatusBadRequest, "Failed to fetch Discord user"
	case errors.Is(err, domainauth.ErrNoExternalID):
		p.Code, p.Message = http.StatusBadRequest, "No Discord ID found"
	case errors.Is(err, domainauth.ErrSessionNotFound):
		p.Code, p.ErrCode, p.Message = http.StatusUnauthorized, ErrCodeUnauthorized, "Unauthorized"
	case errors.Is(err, domainauth.ErrUpstream):
		p.Code, p.Message = http.StatusBadGateway, "Discord is unavailable, try again later"
	case errors.Is(err, domainauth.ErrStore):
		p.Code, p.Message = http.StatusServiceUnavailable, "Storage is unavailable, try again later"
	case apperrors.IsValidation(err):
		p.Code, p.ErrCode = http.StatusBadRequest, ErrCodeMissingParams
	default:
		p.Code, p.ErrCode, p.Message = http.StatusInternalServerError, ErrCodeInternal, "internal server error"
	}
	WriteError(w, p)
}
