// Package fixtures provides realistic test data generation for benchmarks and tests.
package fixtures

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/yashwanth-reddy909/ghia/internal/storage"
	"github.com/yashwanth-reddy909/ghia/internal/types"
)

// issue title stems for realistic data
var issueTitles = []string{
	"Crash when opening large file",
	"Login fails behind corporate proxy",
	"Add dark mode toggle",
	"Memory leak in background worker",
	"Docs: installation steps are outdated",
	"Slow query on dashboard load",
	"Support for ARM64 builds",
	"Flaky test in CI",
	"Error message is unclear on timeout",
	"Feature request: export to CSV",
}

// body stems; an empty slot produces an issue without a body
var issueBodies = []string{
	"Steps to reproduce:\n1. Open the app\n2. Click the button\n\nExpected it to work.",
	"This started happening after the last upgrade.",
	"",
	"Stack trace attached below.\n\n```\npanic: runtime error\n```",
	"Would be great to have this for our team.",
	"",
}

// Fixture size rationale:
// Sync cost is dominated by per-issue lookups and writes, which only show
// up at thousands of issues. Small batches are built inline by tests.

// DataConfig controls the distribution and characteristics of generated issues
type DataConfig struct {
	Repo        string    // owner/name the issues belong to
	TotalIssues int       // total number of issues to generate
	FirstID     int64     // id of the first issue; ids increase by one
	MaxAgeDays  int       // maximum created_at age in days (e.g., 365)
	EditRatio   float64   // fraction of issues whose updated_at is after created_at
	RandSeed    int64     // random seed for reproducibility
	Now         time.Time // reference time; zero means time.Now()
}

// DefaultLargeConfig returns configuration for a 10K issue dataset
func DefaultLargeConfig() DataConfig {
	return DataConfig{
		Repo:        "bench/large",
		TotalIssues: 10000,
		FirstID:     1_000_000,
		MaxAgeDays:  365,
		EditRatio:   0.4,
		RandSeed:    42,
		Now:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// DefaultXLargeConfig returns configuration for a 20K issue dataset
func DefaultXLargeConfig() DataConfig {
	cfg := DefaultLargeConfig()
	cfg.Repo = "bench/xlarge"
	cfg.TotalIssues = 20000
	cfg.RandSeed = 43
	return cfg
}

// Generate returns cfg.TotalIssues deterministic snapshots. The same config
// always yields the same batch.
func Generate(cfg DataConfig) []*types.IssueSnapshot {
	rng := rand.New(rand.NewSource(cfg.RandSeed))
	now := cfg.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	issues := make([]*types.IssueSnapshot, 0, cfg.TotalIssues)
	for i := 0; i < cfg.TotalIssues; i++ {
		id := cfg.FirstID + int64(i)
		created := randomTime(rng, now, cfg.MaxAgeDays)
		updated := created
		if rng.Float64() < cfg.EditRatio {
			updated = created.Add(time.Duration(rng.Intn(72)+1) * time.Hour)
		}

		var body *string
		if b := issueBodies[rng.Intn(len(issueBodies))]; b != "" {
			body = &b
		}

		issues = append(issues, &types.IssueSnapshot{
			ID:        id,
			Repo:      cfg.Repo,
			URL:       fmt.Sprintf("https://github.com/%s/issues/%d", cfg.Repo, id),
			CreatedAt: created,
			Title:     fmt.Sprintf("%s (#%d)", issueTitles[i%len(issueTitles)], id),
			Body:      body,
			UpdatedAt: updated,
			CachedAt:  now,
		})
	}
	return issues
}

// Touch returns a copy of issues where every n-th issue has a later
// updated_at and an edited title, as if it was edited upstream.
func Touch(issues []*types.IssueSnapshot, n int, by time.Duration) []*types.IssueSnapshot {
	out := make([]*types.IssueSnapshot, len(issues))
	for i, issue := range issues {
		c := *issue
		if n > 0 && i%n == 0 {
			c.UpdatedAt = c.UpdatedAt.Add(by)
			c.Title += " [edited]"
		}
		out[i] = &c
	}
	return out
}

// LargeSQLite fills store with a 10K issue repository
func LargeSQLite(ctx context.Context, store storage.Storage) error {
	return populate(ctx, store, Generate(DefaultLargeConfig()))
}

// XLargeSQLite fills store with a 20K issue repository
func XLargeSQLite(ctx context.Context, store storage.Storage) error {
	return populate(ctx, store, Generate(DefaultXLargeConfig()))
}

// populate writes the batch in a single transaction
func populate(ctx context.Context, store storage.Storage, issues []*types.IssueSnapshot) error {
	return store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		for _, issue := range issues {
			if _, err := tx.UpsertIssue(ctx, issue); err != nil {
				return fmt.Errorf("failed to insert issue %d: %w", issue.ID, err)
			}
		}
		return nil
	})
}

// apiIssue mirrors the subset of the GitHub issues API payload the fetcher reads.
type apiIssue struct {
	ID          int64           `json:"id"`
	Number      int64           `json:"number"`
	Title       string          `json:"title"`
	Body        *string         `json:"body"`
	HTMLURL     string          `json:"html_url"`
	State       string          `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	PullRequest json.RawMessage `json:"pull_request,omitempty"`
}

// GitHubPayload renders issues as a GitHub "list repository issues" response
// body. Every pullEvery-th entry is additionally emitted as a pull request,
// which fetchers must skip.
func GitHubPayload(issues []*types.IssueSnapshot, pullEvery int) ([]byte, error) {
	out := make([]apiIssue, 0, len(issues))
	for i, issue := range issues {
		out = append(out, apiIssue{
			ID:        issue.ID,
			Number:    issue.ID,
			Title:     issue.Title,
			Body:      issue.Body,
			HTMLURL:   issue.URL,
			State:     "open",
			CreatedAt: issue.CreatedAt,
			UpdatedAt: issue.UpdatedAt,
		})
		if pullEvery > 0 && i%pullEvery == 0 {
			out = append(out, apiIssue{
				ID:          -issue.ID,
				Number:      issue.ID + 500_000,
				Title:       "PR: " + issue.Title,
				HTMLURL:     fmt.Sprintf("https://github.com/%s/pull/%d", issue.Repo, issue.ID+500_000),
				State:       "open",
				CreatedAt:   issue.CreatedAt,
				UpdatedAt:   issue.UpdatedAt,
				PullRequest: json.RawMessage(`{"url":"https://api.github.com/pulls/1"}`),
			})
		}
	}
	return json.Marshal(out)
}

// WriteGitHubPayload writes GitHubPayload output to path
func WriteGitHubPayload(path string, issues []*types.IssueSnapshot, pullEvery int) error {
	data, err := GitHubPayload(issues, pullEvery)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write payload: %w", err)
	}
	return nil
}

// randomTime returns a random time up to maxDaysAgo days before now, at
// whole-second precision like the GitHub API.
func randomTime(rng *rand.Rand, now time.Time, maxDaysAgo int) time.Time {
	if maxDaysAgo <= 0 {
		maxDaysAgo = 1
	}
	secondsAgo := rng.Int63n(int64(maxDaysAgo) * 24 * 60 * 60)
	return now.Add(-time.Duration(secondsAgo) * time.Second).Truncate(time.Second)
}
