// Package api implements the HTTP client for the remote ticket
// service: per-field enumeration endpoints, paginated organization
// listing, field metadata and structured search.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 30 * time.Second

// Client talks to the ticket API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	username   string
	token      string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithBasicAuth sets username/token credentials sent on every
// request.
func WithBasicAuth(username, token string) Option {
	return func(c *Client) {
		c.username = username
		c.token = token
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client for the given base URL, e.g.
// "https://example.atlassian.net".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a GET against path with query params and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.token)
	} else if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		c.logger.Warn("ticket api request failed", "path", path, "status", resp.Status)
		return fmt.Errorf("ticket api returned status %s for %s", resp.Status, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response of %s: %w", path, err)
	}
	return nil
}

// ListStatuses returns the status enumeration.
func (c *Client) ListStatuses(ctx context.Context) ([]Status, error) {
	var out []Status
	if err := c.get(ctx, "/rest/api/2/status", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPriorities returns the priority enumeration.
func (c *Client) ListPriorities(ctx context.Context) ([]Priority, error) {
	var out []Priority
	if err := c.get(ctx, "/rest/api/2/priority", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListIssueTypes returns the issue type enumeration.
func (c *Client) ListIssueTypes(ctx context.Context) ([]IssueType, error) {
	var out []IssueType
	if err := c.get(ctx, "/rest/api/2/issuetype", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAssignableUsers returns the accounts assignable in a project.
func (c *Client) ListAssignableUsers(ctx context.Context, project string) ([]User, error) {
	params := url.Values{}
	params.Set("project", project)
	var out []User
	if err := c.get(ctx, "/rest/api/2/user/assignable/search", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListOrganizations returns one page of the organization listing.
func (c *Client) ListOrganizations(ctx context.Context, start, limit int) ([]Organization, error) {
	params := url.Values{}
	params.Set("start", strconv.Itoa(start))
	params.Set("limit", strconv.Itoa(limit))
	var page organizationPage
	if err := c.get(ctx, "/rest/servicedeskapi/organization", params, &page); err != nil {
		return nil, err
	}
	return page.Values, nil
}

// CreateMeta returns field metadata, with allowed values expanded,
// across all projects and issue types.
func (c *Client) CreateMeta(ctx context.Context) (*CreateMeta, error) {
	params := url.Values{}
	params.Set("expand", "projects.issuetypes.fields")
	var out CreateMeta
	if err := c.get(ctx, "/rest/api/2/issue/createmeta", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchTickets runs a structured query returning total count and a
// window of matching tickets with raw field payloads.
func (c *Client) SearchTickets(ctx context.Context, query string, startAt, maxResults int) (*SearchResult, error) {
	params := url.Values{}
	params.Set("jql", query)
	params.Set("startAt", strconv.Itoa(startAt))
	params.Set("maxResults", strconv.Itoa(maxResults))
	var out SearchResult
	if err := c.get(ctx, "/rest/api/2/search", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
