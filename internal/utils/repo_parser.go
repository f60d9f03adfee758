// Package utils provides helpers for parsing and resolving repository identifiers.
package utils

import (
	"context"
	"fmt"
	"strings"

	"github.com/yashwanth-reddy909/ghia/internal/storage"
	"github.com/yashwanth-reddy909/ghia/internal/types"
)

var repoURLPrefixes = []string{
	"https://github.com/",
	"http://github.com/",
	"git@github.com:",
	"github.com/",
}

// ParseRepo normalizes user input into "owner/name".
// Accepts the bare form as well as web and clone URLs:
// "https://github.com/acme/widgets.git" → "acme/widgets"
func ParseRepo(input string) string {
	repo := strings.TrimSpace(input)
	for _, prefix := range repoURLPrefixes {
		if strings.HasPrefix(strings.ToLower(repo), prefix) {
			repo = repo[len(prefix):]
			break
		}
	}
	repo = strings.TrimSuffix(repo, "/")
	repo = strings.TrimSuffix(repo, ".git")

	// Drop trailing path segments such as /issues or /pull/3
	if owner, rest, found := strings.Cut(repo, "/"); found {
		if name, _, more := strings.Cut(rest, "/"); more {
			repo = owner + "/" + name
		}
	}
	return repo
}

// ResolveRepo resolves a possibly partial repository identifier against the
// repositories already in the cache.
// Supports:
// - Full identifiers and URLs: "acme/widgets", "https://github.com/acme/widgets"
// - Bare names: "widgets" → "acme/widgets" (if exactly one cached repo matches)
//
// A full identifier is returned as-is even when it was never synchronized.
func ResolveRepo(ctx context.Context, store storage.Storage, input string) (string, error) {
	repo := ParseRepo(input)
	if _, _, ok := SplitRepo(repo); ok {
		if err := types.ValidateRepo(repo); err != nil {
			return "", err
		}
		return repo, nil
	}
	if repo == "" {
		return "", types.ValidateRepo(repo)
	}

	syncs, err := store.ListRepos(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list cached repositories: %w", err)
	}

	var matches []string
	for _, rs := range syncs {
		if strings.EqualFold(RepoName(rs.Repo), repo) {
			matches = append(matches, rs.Repo)
		}
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("no cached repository named %q; use the owner/name form", repo)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous repository %q matches %d cached repositories: %v", repo, len(matches), matches)
	}
	return matches[0], nil
}
