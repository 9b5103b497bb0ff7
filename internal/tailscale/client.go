package tailscale

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// defaultBaseURL is the admin API root of the hosted control plane.
const defaultBaseURL = "https://login.tailscale.com/admin/api"

// defaultTimeout keeps upstream calls from holding a handler open. The
// invite issuer retries timeouts; device-list reads surface them directly.
const defaultTimeout = 500 * time.Millisecond

const csrfHeader = "X-CSRF-Token"

// Credentials are the two opaque admin-session cookies, supplied
// out-of-band. Loaded once at startup and never mutated.
type Credentials struct {
	AuthState2  string
	TailControl string
}

// Device is an upstream-owned machine record, an immutable snapshot per
// fetch.
type Device struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Hostname  string   `json:"hostname"`
	FQDN      string   `json:"fqdn"`
	Addresses []string `json:"addresses"`
	Tags      []string `json:"allowedTags"`
	Connected bool     `json:"connectedToControl"`
}

type Config struct {
	// BaseURL is the admin API root. Defaults to the hosted control
	// plane. Must use HTTPS.
	BaseURL string

	Credentials Credentials

	// HTTPClient is used for all requests. Defaults to a client with
	// the package timeout.
	HTTPClient *http.Client

	Logger zerolog.Logger
}

type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "https://") && !strings.HasPrefix(baseURL, "http://127.0.0.1") {
		return nil, fmt.Errorf("tailscale: admin API requires HTTPS (got %q)", baseURL)
	}

	if cfg.Credentials.AuthState2 == "" || cfg.Credentials.TailControl == "" {
		return nil, fmt.Errorf("tailscale: both session cookies are required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Client{
		baseURL:    baseURL,
		creds:      cfg.Credentials,
		httpClient: httpClient,
		log:        cfg.Logger,
	}, nil
}

// APIError is a non-2xx response from the admin API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tailscale: upstream returned %d: %s", e.StatusCode, e.Body)
}

// IsTransient reports whether an error is worth retrying: transport
// failures and timeouts, upstream 5xx, and 429 rate limits. Other API
// errors (expired session, bad request) are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}

// Machines fetches the full device list.
func (c *Client) Machines(ctx context.Context) ([]Device, error) {
	var out struct {
		Data struct {
			Machines []Device `json:"machines"`
		} `json:"data"`
	}

	resp, err := c.do(ctx, http.MethodGet, "/machines", nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tailscale: decoding machine list: %w", err)
	}
	return out.Data.Machines, nil
}

// Self fetches a fresh CSRF token from the authenticated self endpoint.
// The token is short-lived; callers must fetch one per mutating request.
func (c *Client) Self(ctx context.Context) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, "/self", nil, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	csrf := resp.Header.Get(csrfHeader)
	if csrf == "" {
		return "", &APIError{StatusCode: resp.StatusCode, Body: "missing csrf token header"}
	}
	return csrf, nil
}

// CreateInvite requests a one-time invite code for a device id. The code
// grants temporary network access; unused codes expire upstream.
func (c *Client) CreateInvite(ctx context.Context, nodeID, csrf string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"node":             nodeID,
		"includeExitNodes": false,
	})
	if err != nil {
		return "", err
	}

	headers := http.Header{}
	headers.Set(csrfHeader, csrf)

	resp, err := c.do(ctx, http.MethodPost, "/invite/new", bytes.NewReader(body), headers)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("tailscale: decoding invite response: %w", err)
	}
	if out.Data.Code == "" {
		return "", &APIError{StatusCode: resp.StatusCode, Body: "invite response missing code"}
	}
	return out.Data.Code, nil
}

// InviteURL renders the join link for an invite code.
func (c *Client) InviteURL(code string) string {
	return strings.TrimSuffix(c.baseURL, "/api") + "/invite/" + code
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: "tailscale-authstate2", Value: c.creds.AuthState2})
	req.AddCookie(&http.Cookie{Name: "tailcontrol", Value: c.creds.TailControl})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Debug().
			Int("status", resp.StatusCode).
			Str("path", path).
			Msg("upstream request failed")
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	return resp, nil
}
