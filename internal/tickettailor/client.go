// Package tickettailor is a read-only client for the Ticket Tailor REST API
// (https://developers.tickettailor.com). Collections are exposed as lazy,
// restartable sequences that follow the API's cursor links.
package tickettailor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.tickettailor.com"
	apiRoot        = "/v1"
	maxBodyBytes   = 16 << 20
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the API origin, without the version prefix.
	BaseURL string
	// APIKey is sent as the basic-auth user name with an empty password.
	APIKey string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
}

func NewClient(config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("tickettailor: APIKey is required")
	}
	base := config.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("tickettailor: invalid BaseURL %q: %w", base, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		apiKey:     config.APIKey,
		httpClient: httpClient,
		logger:     logger,
		limiter:    limiter,
	}, nil
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	URL        string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tickettailor: %d from %s: %s", e.StatusCode, e.URL, e.Message)
}

// resolve turns a collection path or a "next" link into an absolute URL.
// Links may be absolute, rooted at /v1, or relative to the /v1 root (which
// is what the API hands back in links.next).
func (c *Client) resolve(link string) string {
	switch {
	case strings.HasPrefix(link, "http://"), strings.HasPrefix(link, "https://"):
		return link
	case strings.HasPrefix(link, apiRoot+"/"):
		return c.baseURL + link
	case strings.HasPrefix(link, "/"):
		return c.baseURL + apiRoot + link
	default:
		return c.baseURL + apiRoot + "/" + link
	}
}

// get performs one authenticated GET and returns the response body.
func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("tickettailor: pacing: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("tickettailor: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.apiKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tickettailor: GET %s: %w", requestURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("tickettailor: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, URL: requestURL, Message: errorMessage(body)}
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var apiErr struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
		return apiErr.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
