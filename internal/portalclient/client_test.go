package portalclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer good" {
			_ = json.NewEncoder(w).Encode(map[string]any{"is_authenticated": false})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"is_authenticated":     true,
			"has_access":           true,
			"is_admin":             false,
			"rank":                 "Main",
			"days_until_next_rank": 12,
			"profile":              map[string]any{"id": "a1", "external_id": "42", "display_name": "Kestrel"},
		})
	})
	mux.HandleFunc("POST /api/discord-auth", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_roles", r.URL.Query().Get("action"))
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "rank": "HighStaff", "is_admin": true})
		case "Bearer norole":
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "no_role", "message": "ask staff"})
		case "Bearer down":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("not json"))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "unauthorized"})
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New("not a url")
	assert.Error(t, err)
}

func TestClient_Status(t *testing.T) {
	srv := newTestServer(t)
	c, err := New(srv.URL + "/")
	require.NoError(t, err)

	st, err := c.Status(context.Background(), "good")
	require.NoError(t, err)
	assert.True(t, st.IsAuthenticated)
	assert.True(t, st.HasAccess)
	assert.Equal(t, domainauth.RankMain, st.Rank)
	assert.Equal(t, 12, st.DaysUntilNextRank)
	require.NotNil(t, st.Profile)
	assert.Equal(t, "Kestrel", st.Profile.DisplayName)

	anon, err := c.Status(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, anon.IsAuthenticated)
	assert.Nil(t, anon.Profile)
}

func TestClient_RefreshRoles(t *testing.T) {
	srv := newTestServer(t)
	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	ctx := context.Background()

	got, err := c.RefreshRoles(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RankAssignment{Rank: domainauth.RankHighStaff, IsAdmin: true}, got)

	_, err = c.RefreshRoles(ctx, "norole")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "ask staff", apiErr.Message)
	assert.ErrorIs(t, err, domainauth.ErrNoQualifyingRole)
	assert.True(t, IsRejection(err))

	_, err = c.RefreshRoles(ctx, "down")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad_gateway", apiErr.Code)
	assert.False(t, IsRejection(err))

	_, err = c.RefreshRoles(ctx, "")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}
