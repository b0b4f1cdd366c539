package service

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is matched by errors.Is for any HTTP 401 response.
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-success response from the task API.
type APIError struct {
	// Code is the HTTP status code.
	Code int

	// Message is the server-provided message, if any.
	Message string

	// Err is the underlying transport-level error.
	Err error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Code, http.StatusText(e.Code))
}

func (e *APIError) Unwrap() error { return e.Err }

// Is reports 401 responses as ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// MessageOf returns the server-provided message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
