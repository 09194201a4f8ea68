// Package http provides the shared API client used by every provider.
//
// A Client issues authenticated JSON requests, classifies failures into a
// single APIError type, and walks Link-header pagination for collection
// responses.
package http

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Standard sentinel errors for provider clients.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates invalid or missing authentication.
	ErrUnauthorized = errors.New("authentication failed")

	// ErrForbidden indicates the user lacks permission for the operation.
	ErrForbidden = errors.New("permission denied")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrBadRequest indicates the request was malformed.
	ErrBadRequest = errors.New("bad request")

	// ErrServerError indicates a server-side error occurred.
	ErrServerError = errors.New("server error")
)

// APIError is the uniform error for every provider API failure.
type APIError struct {
	// Service is the provider name (e.g., "github", "pantheon").
	Service string

	// StatusCode is the HTTP status code returned.
	StatusCode int

	// Message is the joined error text reported by the API.
	Message string

	// Endpoint is the URI that was called.
	Endpoint string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d) at %s: %s",
		e.Service, e.StatusCode, e.Endpoint, e.Message)
}

// Unwrap returns the underlying sentinel error based on status code.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 400, 422:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 429:
		return ErrRateLimited
	default:
		if e.StatusCode >= 500 {
			return ErrServerError
		}
		return nil
	}
}

// errorMessages extracts human-readable messages from a decoded body.
// It understands an "errors" array of strings or objects with a "message"
// field, and falls back to top-level "message" or "error" fields.
func errorMessages(body any) (msgs []string, hasErrorsArray bool) {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil, false
	}

	if list, ok := obj["errors"].([]any); ok && len(list) > 0 {
		for _, item := range list {
			switch v := item.(type) {
			case string:
				msgs = append(msgs, v)
			case map[string]any:
				if m, ok := v["message"].(string); ok && m != "" {
					msgs = append(msgs, m)
				} else if m, ok := v["detail"].(string); ok && m != "" {
					msgs = append(msgs, m)
				}
			}
		}
		if len(msgs) == 0 {
			msgs = append(msgs, "unspecified error")
		}
		return msgs, true
	}

	switch v := obj["message"].(type) {
	case string:
		if v != "" {
			msgs = append(msgs, v)
		}
	case map[string]any:
		// GitLab reports field errors as {"message": {"name": ["has already been taken"]}}
		for _, field := range slices.Sorted(maps.Keys(v)) {
			msgs = append(msgs, fmt.Sprintf("%s %v", field, v[field]))
		}
	}
	if len(msgs) == 0 {
		if s, ok := obj["error"].(string); ok && s != "" {
			msgs = append(msgs, s)
		} else if e, ok := obj["error"].(map[string]any); ok {
			// Bitbucket wraps errors as {"error": {"message": "..."}}
			if s, ok := e["message"].(string); ok && s != "" {
				msgs = append(msgs, s)
			}
		}
	}
	return msgs, false
}

func joinMessages(msgs []string) string {
	return strings.Join(msgs, "; ")
}

// IsNotFound reports whether the error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized reports whether the error indicates authentication failed.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsForbidden reports whether the error indicates permission was denied.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// StatusCode returns the HTTP status carried by an APIError in err's chain,
// or 0 if there is none.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
