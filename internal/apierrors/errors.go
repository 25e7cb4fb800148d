// Package apierrors classifies failures coming back from the MotoHub REST API
// and extracts human-readable messages from its error payloads.
package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Common error categories surfaced by the API client
var (
	// Authentication / authorization
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrRefreshFailed  = errors.New("token refresh failed")

	// Request errors
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")

	// Infrastructure errors
	ErrServer      = errors.New("server error")
	ErrUnavailable = errors.New("service unavailable")
)

// FallbackMessage is used when the server's error payload carries no
// recognisable message field.
const FallbackMessage = "Request failed"

// APIError is a non-2xx response from the backend, carrying the HTTP status
// and whatever message could be extracted from the body.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string][]string // field-level validation messages, if any
}

// New builds an APIError from a response status and raw body. The body is
// parsed on a best-effort basis; an unparseable body yields the fallback
// message.
func New(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode, Message: FallbackMessage}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	// Precedence: "error", then "detail", then flattened field messages.
	if msg := stringField(payload, "error"); msg != "" {
		apiErr.Message = msg
		return apiErr
	}
	if msg := stringField(payload, "detail"); msg != "" {
		apiErr.Message = msg
		return apiErr
	}

	fields := fieldMessages(payload)
	if len(fields) > 0 {
		apiErr.Fields = fields
		apiErr.Message = joinFieldMessages(fields)
	}
	return apiErr
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code onto a sentinel category so callers can use
// errors.Is without inspecting status codes themselves.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return ErrValidation
	case e.StatusCode == http.StatusServiceUnavailable:
		return ErrUnavailable
	case e.StatusCode >= 500:
		return ErrServer
	}
	return nil
}

// Message extracts a display message from an error chain, falling back to a
// generic message for anything that is not an APIError.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return FallbackMessage
}

// IsUnauthorized reports whether err represents a 401 response.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func stringField(payload map[string]json.RawMessage, key string) string {
	raw, ok := payload[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// fieldMessages collects DRF-style per-field validation arrays, e.g.
// {"password": ["Password fields didn't match."]}.
func fieldMessages(payload map[string]json.RawMessage) map[string][]string {
	fields := make(map[string][]string)
	for key, raw := range payload {
		if key == "success" {
			continue
		}
		var msgs []string
		if err := json.Unmarshal(raw, &msgs); err == nil && len(msgs) > 0 {
			fields[key] = msgs
			continue
		}
		var msg string
		if err := json.Unmarshal(raw, &msg); err == nil && strings.TrimSpace(msg) != "" {
			fields[key] = []string{msg}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func joinFieldMessages(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(fields))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, strings.Join(fields[key], " ")))
	}
	return strings.Join(parts, "; ")
}
