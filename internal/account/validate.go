package account

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wolfman30/clinic-portal/internal/feedback"
)

// MinPasswordLength is enforced before any request is sent.
const MinPasswordLength = 8

// ValidateEmail requires a non-blank, well-formed address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return feedback.Invalid("email", "Email is required.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return feedback.Invalid("email", "Enter a valid email address.")
	}
	return nil
}

// ValidatePassword reports a mismatch before a short password.
func ValidatePassword(password, confirm string) error {
	if password != confirm {
		return feedback.Invalid("confirm_password", "Passwords do not match.")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return feedback.Invalid("password", "Password must be at least 8 characters.")
	}
	return nil
}

func required(field, value, message string) error {
	if strings.TrimSpace(value) == "" {
		return feedback.Invalid(field, message)
	}
	return nil
}

// NormalizeCUI strips whitespace and an optional "RO" VAT prefix.
func NormalizeCUI(raw string) string {
	cui := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if len(cui) >= 2 && strings.EqualFold(cui[:2], "RO") {
		cui = cui[2:]
	}
	return cui
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
