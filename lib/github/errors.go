// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"errors"
	"fmt"
	"strings"
)

// APIError represents a non-2xx response from the GitHub REST API.
// GitHub returns structured JSON error bodies with a message, optional
// documentation URL, and optional field-level validation errors.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the top-level error description from GitHub.
	Message string

	// DocumentationURL points to the relevant API documentation.
	DocumentationURL string

	// Errors contains field-level validation failures. Present only
	// on 422 Unprocessable Entity responses.
	Errors []ValidationError
}

// ValidationError describes a specific validation failure on a resource
// field. Returned by GitHub on 422 responses.
type ValidationError struct {
	Resource string `json:"resource"`
	Code     string `json:"code"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

func (err *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "github: HTTP %d: %s", err.StatusCode, err.Message)
	for _, validationError := range err.Errors {
		if validationError.Message != "" {
			fmt.Fprintf(&builder, "; %s.%s: %s", validationError.Resource, validationError.Field, validationError.Message)
		} else {
			fmt.Fprintf(&builder, "; %s.%s: %s", validationError.Resource, validationError.Field, validationError.Code)
		}
	}
	return builder.String()
}

// IsNotFound reports whether err is a GitHub API 404 Not Found response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}

// IsRateLimited reports whether err is a GitHub API rate limit response.
// GitHub returns 403 when the primary rate limit is exceeded and 429
// for secondary (abuse) rate limits.
func IsRateLimited(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.StatusCode == 429 || (apiError.StatusCode == 403 && isRateLimitMessage(apiError.Message))
}

// IsUnauthorized reports whether err is a 401 or a non-rate-limit 403:
// a bad token or one without write access to the repository.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	return apiError.StatusCode == 401 || (apiError.StatusCode == 403 && !isRateLimitMessage(apiError.Message))
}

// IsNotFastForward reports whether err is GitHub refusing a ref update
// because the new commit does not descend from the ref's current
// commit. GitHub answers 422 "Update is not a fast forward"; 409 is
// returned when the ref moved under a concurrent update.
func IsNotFastForward(err error) bool {
	var apiError *APIError
	if !errors.As(err, &apiError) {
		return false
	}
	if apiError.StatusCode == 409 {
		return true
	}
	return apiError.StatusCode == 422 && strings.Contains(strings.ToLower(apiError.Message), "fast forward")
}

// isRateLimitMessage checks whether a 403 error message indicates a
// rate limit rather than a permission issue. GitHub's rate limit 403
// responses contain recognizable phrases.
func isRateLimitMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "abuse detection")
}
