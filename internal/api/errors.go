package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNetwork marks failures where no HTTP response was received.
	ErrNetwork = errors.New("api: network error")
	// ErrUnauthorized matches any 401 response.
	ErrUnauthorized = errors.New("api: unauthorized")
	// ErrInvalidCredentials is returned by Login for a 401.
	ErrInvalidCredentials = errors.New("api: invalid credentials")
)

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Route      string
	Detail     string
	Body       string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %s returned %d: %s", e.Route, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api: %s returned %d", e.Route, e.StatusCode)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// DetailOf returns the server-supplied detail message carried by err.
func DetailOf(err error) (string, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Detail) != "" {
		return apiErr.Detail, true
	}
	return "", false
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// parseDetail extracts the human-readable detail from an error body.
// detail is usually a string; validation failures send a list of {msg}.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	if len(envelope.Detail) > 0 {
		var s string
		if err := json.Unmarshal(envelope.Detail, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(envelope.Detail, &items); err == nil {
			msgs := make([]string, 0, len(items))
			for _, it := range items {
				if m := strings.TrimSpace(it.Msg); m != "" {
					msgs = append(msgs, m)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return strings.TrimSpace(envelope.Message)
}
