package feedback

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/clinic-portal/internal/api"
)

func TestMessageTaxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"validation", Invalid("reason", "Please enter a reason"), "Please enter a reason"},
		{"invalid credentials", fmt.Errorf("%w: %w", api.ErrInvalidCredentials, &api.Error{StatusCode: 401, Detail: "Incorrect"}), DefaultMessages.InvalidCredentials},
		{"network", fmt.Errorf("%w: appointments.list: dial tcp", api.ErrNetwork), DefaultMessages.Network},
		{"server detail", fmt.Errorf("create: %w", &api.Error{StatusCode: 409, Detail: "Slot taken"}), "Slot taken"},
		{"server without detail", &api.Error{StatusCode: 500}, "fallback"},
		{"unknown", errors.New("boom"), "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err, "fallback"))
		})
	}
}

func TestMessagesCustomFallbacks(t *testing.T) {
	m := Messages{Network: "Fără conexiune"}
	assert.Equal(t, "Fără conexiune", m.Text(api.ErrNetwork))
	assert.Equal(t, DefaultMessages.Generic, m.Text(errors.New("x")))
}

func TestIsValidation(t *testing.T) {
	assert.True(t, IsValidation(fmt.Errorf("wrap: %w", Invalid("title", "required"))))
	assert.False(t, IsValidation(errors.New("x")))
	assert.Equal(t, "title: required", Invalid("title", "required").Error())
}
