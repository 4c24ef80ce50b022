package storeapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound    = errors.New("storeapi: not found")
	ErrUnavailable = errors.New("storeapi: remote temporarily unavailable")
)

// APIError is a non-2xx answer from the store API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storeapi: remote returned %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrNotFound) match a 404.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Transient reports whether the request may succeed when repeated.
func (e *APIError) Transient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}
