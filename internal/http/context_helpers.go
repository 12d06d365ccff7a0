package httpx

import (
	"context"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

// authKey is an unexported context key type to avoid collisions across packages.
type authKey struct{}

// setAuthInContext returns a child context that carries the resolved session, state and profile.
// If the session is nil, the original ctx is returned unchanged.
func setAuthInContext(ctx context.Context, auth domainauth.RequestAuth) context.Context {
	if auth.Session == nil {
		return ctx
	}
	return context.WithValue(ctx, authKey{}, auth)
}

// GetSessionFromContext returns the session set by RequireAccess or RequireAdmin.
func GetSessionFromContext(ctx context.Context) (*domainauth.Session, bool) {
	a, ok := ctx.Value(authKey{}).(domainauth.RequestAuth)
	if !ok {
		return nil, false
	}
	return a.Session, true
}

// GetAuthStateFromContext returns the derived auth state; anonymous when none was set.
func GetAuthStateFromContext(ctx context.Context) domainauth.AuthState {
	a, _ := ctx.Value(authKey{}).(domainauth.RequestAuth)
	return a.State
}

// GetProfileFromContext returns the caller's profile when it was loaded.
func GetProfileFromContext(ctx context.Context) *domainauth.Profile {
	a, _ := ctx.Value(authKey{}).(domainauth.RequestAuth)
	return a.Profile
}
