package redash

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingBaseURL = errors.New("redash: base url is required")
	ErrMissingID      = errors.New("redash: resource id is required")
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("redash: %s %s: status %d", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("redash: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not an APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsConflict reports whether err is a version conflict (409).
func IsConflict(err error) bool {
	return StatusCode(err) == http.StatusConflict
}

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsForbidden reports whether err is an authorization failure (401 or 403).
func IsForbidden(err error) bool {
	switch StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}
