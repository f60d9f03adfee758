package main

import (
	"log/slog"

	"github.com/yashwanth-reddy909/ghia/internal/analysis"
	"github.com/yashwanth-reddy909/ghia/internal/config"
	"github.com/yashwanth-reddy909/ghia/internal/github"
)

// newGitHubClient builds the issue fetcher from the github.* settings.
func newGitHubClient(logger *slog.Logger) (*github.Client, error) {
	return github.NewClient(github.Config{
		BaseURL:   config.GetString("github.api-url"),
		Token:     config.GetString("github.token"),
		PerPage:   config.GetInt("github.per-page"),
		Timeout:   config.GetDuration("github.timeout"),
		UserAgent: "ghia/" + Version,
		Logger:    logger,
	})
}

// newAnalyzer builds the analyzer from the llm.* settings. It fails with
// analysis.ErrAPIKeyRequired when no key is configured.
func newAnalyzer() (*analysis.Analyzer, error) {
	temperature := config.GetFloat64("llm.temperature")
	retries := config.GetInt("llm.max-retries")
	return analysis.New(analysis.Config{
		APIKey:      config.GetString("llm.api-key"),
		Model:       config.GetString("llm.model"),
		MaxTokens:   int64(config.GetInt("llm.max-tokens")),
		Temperature: &temperature,
		BaseURL:     config.GetString("llm.base-url"),
		MaxRetries:  &retries,
	})
}
