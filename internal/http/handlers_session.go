package httpx

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

// SessionHandlers serves the browser session endpoints and the member listing.
type SessionHandlers struct {
	Svc          IdentityService
	CookieDomain string
	Logger       *slog.Logger
	Now          func() time.Time
}

func (h *SessionHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *SessionHandlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Verify exchanges a one-time verification token for the session cookie.
// GET /auth/verify?token=<token>&redirect_uri=<optional relative path>.
func (h *SessionHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Svc.Verify(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.logger().InfoContext(r.Context(), "verification link rejected", "reason", domainauth.Reason(err))
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: ErrCodeInvalidToken,
			Message: "This sign-in link is invalid or has already been used.",
		})
		return
	}
	h.setSessionCookie(w, r, *sess)
	http.Redirect(w, r, safeRedirectPath(r.URL.Query().Get("redirect_uri")), http.StatusFound)
}

type statusResponse struct {
	domainauth.AuthState
	Profile           *domainauth.ProfileSummary `json:"profile,omitempty"`
	DaysUntilNextRank int                        `json:"days_until_next_rank,omitempty"`
}

// Status returns the Auth Context for the caller. Unknown sessions yield the anonymous state.
// GET /auth/status.
func (h *SessionHandlers) Status(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	auth, err := h.Svc.AuthContext(r.Context(), token)
	if err != nil {
		writeResolutionError(w, err)
		return
	}
	if token != "" && !auth.State.IsAuthenticated {
		if _, cerr := r.Cookie(SessionCookieName); cerr == nil {
			h.clearCookie(w, r, SessionCookieName)
		}
	}

	WriteJSON(w, http.StatusOK, h.statusOf(auth.State, auth.Profile))
}

func (h *SessionHandlers) statusOf(state domainauth.AuthState, profile *domainauth.Profile) statusResponse {
	resp := statusResponse{AuthState: state}
	if profile != nil {
		summary := profile.Summary()
		resp.Profile = &summary
		resp.DaysUntilNextRank = profile.DaysUntilNextRank(h.now())
	}
	return resp
}

// Me returns the caller's profile. Mounted behind RequireAccess, so the profile is always present.
// GET /api/me.
func (h *SessionHandlers) Me(w http.ResponseWriter, r *http.Request) {
	profile := GetProfileFromContext(r.Context())
	sess, ok := GetSessionFromContext(r.Context())
	if !ok || profile == nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: ErrCodeUnauthorized,
			Message: "Authentication required.",
		})
		return
	}
	WriteJSON(w, http.StatusOK, meResponse{
		statusResponse:   h.statusOf(GetAuthStateFromContext(r.Context()), profile),
		SessionExpiresAt: sess.ExpiresAt,
	})
}

type meResponse struct {
	statusResponse
	SessionExpiresAt time.Time `json:"session_expires_at"`
}

// Logout deletes the session and clears the cookie.
// POST /auth/logout.
func (h *SessionHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		if err := h.Svc.Logout(r.Context(), token); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.clearCookie(w, r, SessionCookieName)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type membersResponse struct {
	Members []domainauth.ProfileSummary `json:"members"`
	Limit   int                         `json:"limit"`
	Offset  int                         `json:"offset"`
}

// Members lists profiles that currently grant access. Mounted behind RequireAdmin.
// GET /api/members?limit=<n>&offset=<n>.
func (h *SessionHandlers) Members(w http.ResponseWriter, r *http.Request) {
	page, err := h.Svc.ListMembers(r.Context(), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeResolutionError(w, err)
		return
	}
	out := membersResponse{
		Members: make([]domainauth.ProfileSummary, 0, len(page.Members)),
		Limit:   page.Limit,
		Offset:  page.Offset,
	}
	for _, p := range page.Members {
		out.Members = append(out.Members, p.Summary())
	}
	WriteJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// setSessionCookie writes the session cookie based on the session's expiry.
func (h *SessionHandlers) setSessionCookie(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ExpiresAt.Sub(h.now()).Seconds()),
	})
}

// clearCookie mirrors the attributes used when setting the cookie so browsers delete it.
func (h *SessionHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.CookieDomain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(candidate, "//") {
		return "/"
	}
	return candidate
}
