package auth

// AuthState is the authorization view derived from a session and its profile.
type AuthState struct {
	IsAuthenticated bool `json:"is_authenticated"`
	HasAccess       bool `json:"has_access"`
	IsAdmin         bool `json:"is_admin"`
	Rank            Rank `json:"rank"`
}

// NewAuthState derives the auth state. A nil profile means it has not loaded yet
// or does not exist, which grants no access even when a session is present.
func NewAuthState(sess *Session, profile *Profile) AuthState {
	st := AuthState{IsAuthenticated: sess != nil}
	if profile == nil {
		return st
	}
	st.IsAdmin = profile.IsAdmin
	st.Rank = profile.Rank
	st.HasAccess = profile.HasAccess()
	return st
}

// RequestAuth is what one session lookup yields for a request. Session is nil for anonymous callers.
type RequestAuth struct {
	Session *Session
	State   AuthState
	Profile *Profile
}
