package types

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// Prompt length bounds for analysis requests, in characters.
const (
	MinPromptLength = 10
	MaxPromptLength = 2000
)

var repoPattern = regexp.MustCompile(`^[\w\-.]+/[\w\-.]+$`)

// ValidateRepo checks that repo is an "owner/name" identifier.
func ValidateRepo(repo string) error {
	if repo == "" {
		return &ValidationError{Field: "repo", Message: "repository is required"}
	}
	if !repoPattern.MatchString(repo) {
		return &ValidationError{
			Field:   "repo",
			Message: fmt.Sprintf("%q is not in 'owner/repository-name' format", repo),
		}
	}
	return nil
}

// ValidatePrompt checks that an analysis prompt is within the accepted length.
func ValidatePrompt(prompt string) error {
	n := utf8.RuneCountInString(prompt)
	if n < MinPromptLength || n > MaxPromptLength {
		return &ValidationError{
			Field:   "prompt",
			Message: fmt.Sprintf("must be between %d and %d characters (got %d)", MinPromptLength, MaxPromptLength, n),
		}
	}
	return nil
}
