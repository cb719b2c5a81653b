// Package feedback turns flow errors into the text shown to the user.
package feedback

import (
	"errors"
	"fmt"

	"github.com/wolfman30/clinic-portal/internal/api"
)

// ValidationError is raised before any request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Messages are the fallback texts used when the server gives no detail.
type Messages struct {
	Generic            string
	Network            string
	InvalidCredentials string
}

// DefaultMessages are the English fallbacks.
var DefaultMessages = Messages{
	Generic:            "Something went wrong. Please try again.",
	Network:            "Network error. Check your connection and try again.",
	InvalidCredentials: "Invalid email or password.",
}

func (m Messages) withDefaults() Messages {
	if m.Generic == "" {
		m.Generic = DefaultMessages.Generic
	}
	if m.Network == "" {
		m.Network = DefaultMessages.Network
	}
	if m.InvalidCredentials == "" {
		m.InvalidCredentials = DefaultMessages.InvalidCredentials
	}
	return m
}

// Text maps err to user-facing text:
// validation message, invalid credentials, network error, server detail,
// then the generic fallback.
func (m Messages) Text(err error) string {
	if err == nil {
		return ""
	}
	m = m.withDefaults()
	var v *ValidationError
	switch {
	case errors.As(err, &v):
		return v.Message
	case errors.Is(err, api.ErrInvalidCredentials):
		return m.InvalidCredentials
	case api.IsNetwork(err):
		return m.Network
	}
	if detail, ok := api.DetailOf(err); ok {
		return detail
	}
	return m.Generic
}

// Message maps err using DefaultMessages with a caller-supplied generic fallback.
func Message(err error, fallback string) string {
	m := DefaultMessages
	if fallback != "" {
		m.Generic = fallback
	}
	return m.Text(err)
}
