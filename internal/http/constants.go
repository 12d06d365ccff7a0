package httpx

const (
	// SessionCookieName carries the session ID for browser clients.
	SessionCookieName = "session_id"

	maxBodyBytes = 64 << 10
)

// Error codes returned in the "error" field of JSON error bodies.
const (
	ErrCodeInvalidJSON      = "invalid_json"
	ErrCodeInvalidAction    = "invalid_action"
	ErrCodeMissingParams    = "missing_params"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeAccessDenied     = "access_denied"
	ErrCodeAdminRequired    = "admin_required"
	ErrCodeInvalidToken     = "invalid_verification_token"
	ErrCodeInternal         = "internal_error"
)

// Remediation messages shown to users who were refused access.
const (
	MessageNotMember = "You are not a member of the clan Discord server. Join the server, then sign in again."
	MessageNoRole    = "You have no clan role on the Discord server. Ask staff for a role, then sign in again."
)
