package server

import (
	"fmt"

	"github.com/yashwanth-reddy909/ghia/internal/types"
)

// Header names exchanged between Client and Server
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderClientVersion = "X-Ghia-Client-Version"
)

// RootResponse is returned by GET /
type RootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ScanRequest is the body of POST /scan
type ScanRequest struct {
	Repo        string `json:"repo"`
	FullRefresh bool   `json:"full_refresh,omitempty"` // Clear the cache before reinserting
}

// ScanResponse is returned by POST /scan
type ScanResponse struct {
	Repo               string          `json:"repo"`
	IssuesFetched      int             `json:"issues_fetched"`
	CachedSuccessfully bool            `json:"cached_successfully"`
	Message            string          `json:"message,omitempty"`
	Stats              types.SyncStats `json:"stats"`
}

// ScanMessage summarizes a sync outcome for ScanResponse.Message.
func ScanMessage(stats types.SyncStats, full bool) string {
	if full {
		return fmt.Sprintf("Full refresh: %d cached, %d removed", stats.Inserted+stats.Updated, stats.Removed)
	}
	return fmt.Sprintf("Smart sync: %d new, %d updated, %d unchanged", stats.Inserted, stats.Updated, stats.Unchanged)
}

// AnalyzeRequest is the body of POST /analyze
type AnalyzeRequest struct {
	Repo   string `json:"repo"`
	Prompt string `json:"prompt"`
}

// AnalyzeResponse is returned by POST /analyze
type AnalyzeResponse struct {
	Repo     string `json:"repo"`
	Prompt   string `json:"prompt"`
	Analysis string `json:"analysis"`
}

// IssuesResponse is returned by GET /issues
type IssuesResponse struct {
	Repo     string                 `json:"repo" yaml:"repo"`
	Issues   []*types.IssueSnapshot `json:"issues" yaml:"issues"`
	LastSync *types.RepoSync        `json:"last_sync,omitempty" yaml:"last_sync,omitempty"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status         string  `json:"status"` // healthy, degraded, unhealthy
	Version        string  `json:"version"`
	ClientVersion  string  `json:"client_version,omitempty"`
	Compatible     bool    `json:"compatible"`
	Uptime         float64 `json:"uptime_seconds"`
	DBResponseTime float64 `json:"db_response_ms"`
	Repos          int     `json:"repos"`
	AnalysisReady  bool    `json:"analysis_ready"`
	Error          string  `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error string `json:"error"`
}
