package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yashwanth-reddy909/ghia/internal/analysis"
	"github.com/yashwanth-reddy909/ghia/internal/types"
)

// errAnalysisUnavailable is reported by /analyze when no analyzer is wired.
var errAnalysisUnavailable = errors.New("analysis is not configured: set ANTHROPIC_API_KEY and restart the server")

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Message: "GitHub Issue Analyzer API",
		Status:  "running",
		Version: s.version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	healthCtx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	status := StatusHealthy
	dbError := ""
	repos, err := s.engine.Store().ListRepos(healthCtx)
	dbResponseMs := time.Since(start).Seconds() * 1000
	if err != nil {
		status = StatusUnhealthy
		dbError = err.Error()
	} else if dbResponseMs > 500 {
		status = StatusDegraded
	}

	clientVersion := r.Header.Get(HeaderClientVersion)
	health := HealthResponse{
		Status:         status,
		Version:        s.version,
		ClientVersion:  clientVersion,
		Compatible:     checkVersionCompatibility(s.version, clientVersion) == nil,
		Uptime:         time.Since(s.startTime).Seconds(),
		DBResponseTime: dbResponseMs,
		Repos:          len(repos),
		AnalysisReady:  s.analyzer != nil,
		Error:          dbError,
	}

	code := http.StatusOK
	if status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, health)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	repo := req.Repo
	if err := types.ValidateRepo(repo); err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	issues, err := s.fetcher.ListOpenIssues(ctx, repo)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("fetched issues", "repo", repo, "count", len(issues))

	var stats types.SyncStats
	if req.FullRefresh {
		stats, err = s.engine.FullRefresh(ctx, repo, issues)
	} else {
		stats, err = s.engine.SmartSync(ctx, repo, issues)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ScanResponse{
		Repo:               repo,
		IssuesFetched:      len(issues),
		CachedSuccessfully: true,
		Message:            ScanMessage(stats, req.FullRefresh),
		Stats:              stats,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	repo := req.Repo
	if err := types.ValidateRepo(repo); err != nil {
		s.writeError(w, err)
		return
	}
	if err := types.ValidatePrompt(req.Prompt); err != nil {
		s.writeError(w, err)
		return
	}
	if s.analyzer == nil {
		s.writeError(w, errAnalysisUnavailable)
		return
	}

	ctx := r.Context()
	issues, err := s.engine.Issues(ctx, repo)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.logger.Info("analyzing issues", "repo", repo, "count", len(issues))

	result, err := s.analyzer.Analyze(ctx, issues, req.Prompt)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Repo:     repo,
		Prompt:   req.Prompt,
		Analysis: result,
	})
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	repo := r.URL.Query().Get("repo")
	if err := types.ValidateRepo(repo); err != nil {
		s.writeError(w, err)
		return
	}

	ctx := r.Context()
	issues, err := s.engine.Issues(ctx, repo)
	if err != nil {
		s.writeError(w, err)
		return
	}
	lastSync, err := s.engine.LastSync(ctx, repo)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IssuesResponse{
		Repo:     repo,
		Issues:   issues,
		LastSync: lastSync,
	})
}

// statusFor maps a failure kind to the HTTP status reported for it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, types.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrVersionMismatch):
		return http.StatusUpgradeRequired
	case errors.Is(err, errAnalysisUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrFetch), errors.Is(err, analysis.ErrAnalysis):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", code, "error", err)
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody reads one JSON object from the request body. Malformed bodies
// are validation failures.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &types.ValidationError{Field: "body", Message: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return nil
}
