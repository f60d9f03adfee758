package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yashwanth-reddy909/ghia/internal/types"
)

// RemoteError is a non-2xx answer from a ghia server.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Is classifies the remote failure by status so callers can use the same
// errors.Is checks as in direct mode.
func (e *RemoteError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return target == types.ErrValidation
	case http.StatusUpgradeRequired:
		return target == ErrVersionMismatch
	case http.StatusBadGateway:
		return target == types.ErrFetch
	case http.StatusInternalServerError:
		return target == types.ErrStorage
	}
	return false
}

// Client talks to a running ghia server.
type Client struct {
	baseURL    string
	version    string
	httpClient *http.Client
}

// NewClient returns a Client for the server at baseURL. version is sent in
// X-Ghia-Client-Version; empty skips the compatibility check.
func NewClient(baseURL, version string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: must be http(s)://host[:port]", baseURL)
	}
	if httpClient == nil {
		// Analysis calls can take a while
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		version:    version,
		httpClient: httpClient,
	}, nil
}

// Ping checks the server is running.
func (c *Client) Ping(ctx context.Context) (*RootResponse, error) {
	var resp RootResponse
	if err := c.do(ctx, http.MethodGet, "/", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health fetches the server's health report. An unhealthy server still
// yields the report alongside the error.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &resp)
	var remote *RemoteError
	if err != nil && !(errors.As(err, &remote) && remote.StatusCode == http.StatusServiceUnavailable) {
		return nil, err
	}
	return &resp, err
}

// Scan fetches and caches the open issues of repo on the server.
func (c *Client) Scan(ctx context.Context, repo string, fullRefresh bool) (*ScanResponse, error) {
	var resp ScanResponse
	if err := c.do(ctx, http.MethodPost, "/scan", ScanRequest{Repo: repo, FullRefresh: fullRefresh}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Analyze asks the server to answer prompt over repo's cached issues.
func (c *Client) Analyze(ctx context.Context, repo, prompt string) (*AnalyzeResponse, error) {
	var resp AnalyzeResponse
	if err := c.do(ctx, http.MethodPost, "/analyze", AnalyzeRequest{Repo: repo, Prompt: prompt}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Issues lists repo's cached issues, newest first.
func (c *Client) Issues(ctx context.Context, repo string) (*IssuesResponse, error) {
	var resp IssuesResponse
	path := "/issues?repo=" + url.QueryEscape(repo)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.version != "" {
		req.Header.Set(HeaderClientVersion, c.version)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		if json.Unmarshal(data, &errResp) != nil || errResp.Error == "" {
			errResp.Error = strings.TrimSpace(string(data))
		}
		remote := &RemoteError{StatusCode: resp.StatusCode, Message: errResp.Error}
		// Health reports come with a 503 body worth decoding
		if resp.StatusCode == http.StatusServiceUnavailable && out != nil {
			_ = json.Unmarshal(data, out)
		}
		return remote
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
