package utils

import (
	"strings"
)

// SplitRepo splits "owner/name" into its parts. ok is false when repo does
// not contain exactly one slash with text on both sides.
func SplitRepo(repo string) (owner, name string, ok bool) {
	idx := strings.Index(repo, "/")
	if idx <= 0 || idx == len(repo)-1 || strings.Contains(repo[idx+1:], "/") {
		return "", "", false
	}
	return repo[:idx], repo[idx+1:], true
}

// RepoName returns the name part of "owner/name", or repo itself when it has no owner.
func RepoName(repo string) string {
	if _, name, ok := SplitRepo(repo); ok {
		return name
	}
	return repo
}
