package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

// Logging returns a middleware that logs HTTP requests and responses.
// Query strings are not logged since they may carry verification tokens.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("action", r.URL.Query().Get("action")),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteError(w, ErrorParams{
						Code:    http.StatusInternalServerError,
						ErrCode: ErrCodeInternal,
						Message: "internal server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORS adds permissive CORS headers to every response and answers preflight requests
// with 200 and no body. An empty allowedOrigin means "*".
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowedOrigin)
			h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			if allowedOrigin != "*" {
				h.Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthContextResolver derives the session, auth state and profile for a session ID in one lookup.
type AuthContextResolver interface {
	AuthContext(ctx context.Context, sessionID string) (domainauth.RequestAuth, error)
}

// RequireAccess returns a middleware that admits sessions whose profile grants access.
// It answers 401 without a live session and 403 when the rank was revoked.
func RequireAccess(svc AuthContextResolver) func(http.Handler) http.Handler {
	return requireAuth(svc, func(st domainauth.AuthState) (bool, string) {
		return st.HasAccess, ErrCodeAccessDenied
	})
}

// RequireAdmin returns a middleware that admits only HighStaff sessions.
func RequireAdmin(svc AuthContextResolver) func(http.Handler) http.Handler {
	return requireAuth(svc, func(st domainauth.AuthState) (bool, string) {
		return st.IsAdmin, ErrCodeAdminRequired
	})
}

func requireAuth(svc AuthContextResolver, allow func(domainauth.AuthState) (bool, string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, err := svc.AuthContext(r.Context(), sessionToken(r))
			if err != nil {
				writeResolutionError(w, err)
				return
			}
			if !auth.State.IsAuthenticated {
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: ErrCodeUnauthorized,
					Err:     errors.New("authentication required"),
				})
				return
			}
			if ok, code := allow(auth.State); !ok {
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: code,
					Err:     errors.New("insufficient permissions"),
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(setAuthInContext(r.Context(), auth)))
		})
	}
}

// sessionToken reads the session ID from a Bearer Authorization header, falling back to the cookie.
func sessionToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); authz != "" {
		scheme, token, ok := strings.Cut(authz, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}
