// Package portalclient is an HTTP client for the gatekeeper API, used by Go consumers of the
// Auth Context such as the admin CLI.
package portalclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainauth "github.com/clanhall/gatekeeper/internal/domain/auth"
)

const defaultTimeout = 10 * time.Second

// StatusResponse is the body of GET /auth/status.
type StatusResponse struct {
	domainauth.AuthState
	Profile           *domainauth.ProfileSummary `json:"profile,omitempty"`
	DaysUntilNextRank int                        `json:"days_until_next_rank,omitempty"`
}

// APIError is a non-2xx response. It unwraps to the domain sentinel matching Code when one exists.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"error"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gatekeeper: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("gatekeeper: %d %s", e.StatusCode, e.Code)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "not_member":
		return domainauth.ErrNotAMember
	case "no_role":
		return domainauth.ErrNoQualifyingRole
	case "no_external_id":
		return domainauth.ErrNoExternalID
	case "upstream_error":
		return domainauth.ErrUpstream
	case "store_error":
		return domainauth.ErrStore
	}
	if e.StatusCode == http.StatusUnauthorized {
		return domainauth.ErrSessionNotFound
	}
	return nil
}

// Client calls a running gatekeeper server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	c := &Client{baseURL: u, httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Status returns the Auth Context for token. An empty token is sent without credentials.
func (c *Client) Status(ctx context.Context, token string) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/auth/status", nil, token, &out)
	return out, err
}

// RefreshRoles asks the server to re-derive the rank for token's session from live Discord roles.
func (c *Client) RefreshRoles(ctx context.Context, token string) (domainauth.RankAssignment, error) {
	var out struct {
		Success bool `json:"success"`
		domainauth.RankAssignment
	}
	q := url.Values{"action": {"refresh_roles"}}
	if err := c.do(ctx, http.MethodPost, "/api/discord-auth", q, token, &out); err != nil {
		return domainauth.RankAssignment{}, err
	}
	return out.RankAssignment, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, token string, out any) error {
	u := c.baseURL.JoinPath(path)
	if q != nil {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jerr := json.Unmarshal(body, apiErr); jerr != nil || apiErr.Code == "" {
			apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
		}
		return apiErr
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// IsRejection reports whether err means the user no longer qualifies for access.
func IsRejection(err error) bool {
	return errors.Is(err, domainauth.ErrNoQualifyingRole) || errors.Is(err, domainauth.ErrNotAMember)
}
