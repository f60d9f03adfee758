// Package github fetches the open issues of a repository from the GitHub
// REST API.
package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// githubAPIVersion is the GitHub REST API version header. Pinning the
// version ensures consistent behavior as GitHub evolves the API.
const githubAPIVersion = "2022-11-28"

const (
	// DefaultBaseURL is the base URL for the public GitHub API.
	DefaultBaseURL = "https://api.github.com"
	// DefaultPerPage is the largest page size GitHub accepts.
	DefaultPerPage = 100
	// DefaultTimeout bounds each HTTP request when no HTTPClient is given.
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the root URL for API requests. Defaults to DefaultBaseURL.
	BaseURL string

	// Token is a personal access token. Optional; anonymous requests work
	// for public repositories at a lower rate limit.
	Token string

	// PerPage is the page size, 1 to 100. Defaults to DefaultPerPage.
	PerPage int

	// HTTPClient is used for all HTTP requests. Defaults to a client with
	// Timeout.
	HTTPClient *http.Client

	// Timeout applies to the default HTTP client only.
	Timeout time.Duration

	// UserAgent is sent with every request. GitHub rejects requests
	// without one.
	UserAgent string

	// Logger is used for structured logging. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Client is a minimal GitHub REST client.
type Client struct {
	baseURL    string
	token      string
	perPage    int
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client from config, applying defaults.
func NewClient(config Config) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(baseURL, "https://") && !strings.HasPrefix(baseURL, "http://") {
		return nil, fmt.Errorf("github: base URL must be http(s) (got %q)", config.BaseURL)
	}

	perPage := config.PerPage
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if perPage < 1 || perPage > 100 {
		return nil, fmt.Errorf("github: per_page must be between 1 and 100 (got %d)", perPage)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = "ghia"
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:    baseURL,
		token:      config.Token,
		perPage:    perPage,
		userAgent:  userAgent,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// HasToken reports whether requests are authenticated.
func (client *Client) HasToken() bool {
	return client.token != ""
}

// doRaw executes a request with the standard GitHub headers. The caller is
// responsible for closing the response body.
func (client *Client) doRaw(ctx context.Context, method, url string) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fetchError("creating request: %w", err)
	}

	if client.token != "" {
		request.Header.Set("Authorization", "Bearer "+client.token)
	}
	request.Header.Set("Accept", "application/vnd.github+json")
	request.Header.Set("X-GitHub-Api-Version", githubAPIVersion)
	request.Header.Set("User-Agent", client.userAgent)

	start := time.Now()
	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fetchError("%s %s: %w", method, url, err)
	}
	client.logger.Debug("github request",
		"method", method,
		"url", url,
		"status", response.StatusCode,
		"duration", time.Since(start),
	)
	return response, nil
}
