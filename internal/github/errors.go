package github

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yashwanth-reddy909/ghia/internal/types"
)

// APIError represents a non-2xx response from the GitHub REST API.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the top-level error description from GitHub, or the raw
	// body when it was not JSON.
	Message string

	// DocumentationURL points to the relevant API documentation.
	DocumentationURL string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("GitHub API error: %d - %s", err.StatusCode, err.Message)
}

// Is reports types.ErrFetch as a match.
func (err *APIError) Is(target error) bool {
	return target == types.ErrFetch
}

// IsNotFound reports whether err is a GitHub API 404 Not Found response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// parseAPIErrorFromBody parses a GitHub API error from a status code
// and response body.
func parseAPIErrorFromBody(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var wireError struct {
		Message          string `json:"message"`
		DocumentationURL string `json:"documentation_url"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Message != "" {
		apiError.Message = wireError.Message
		apiError.DocumentationURL = wireError.DocumentationURL
	} else {
		apiError.Message = string(body)
	}

	return apiError
}

// fetchError marks a transport or decoding failure as types.ErrFetch.
func fetchError(format string, args ...any) error {
	return fmt.Errorf("%w: %w", types.ErrFetch, fmt.Errorf(format, args...))
}
