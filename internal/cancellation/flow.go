// Package cancellation collects a reason and cancels one appointment.
package cancellation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/workflow"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// MinReasonLength is the minimum trimmed reason length, in characters.
const MinReasonLength = 3

var (
	// ErrNotOpen is returned when submitting without an appointment.
	ErrNotOpen = errors.New("cancellation: no appointment selected")
	// ErrBusy is returned while a cancellation is in flight.
	ErrBusy = errors.New("cancellation: request in progress")
)

// Canceller is the API call the flow needs.
type Canceller interface {
	CancelAppointment(ctx context.Context, id api.ID, reason string) error
}

// Flow is the cancellation dialog.
type Flow struct {
	api      Canceller
	logger   *logging.Logger
	metrics  *metrics.ClientMetrics
	messages feedback.Messages

	mu          sync.Mutex
	appointment *api.Appointment
	reason      string
	submitting  bool
	errMsg      string
}

// NewFlow builds a flow. logger and m may be nil.
func NewFlow(c Canceller, logger *logging.Logger, m *metrics.ClientMetrics, messages feedback.Messages) *Flow {
	if logger == nil {
		logger = logging.Default()
	}
	return &Flow{api: c, logger: logger.Component("cancellation"), metrics: m, messages: messages}
}

// Open starts the dialog for appt, discarding any previous input.
func (f *Flow) Open(appt api.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appointment = &appt
	f.reason = ""
	f.errMsg = ""
}

// Close dismisses the dialog.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appointment = nil
	f.reason = ""
	f.errMsg = ""
}

// SetReason updates the typed reason.
func (f *Flow) SetReason(reason string) {
	f.mu.Lock()
	f.reason = reason
	f.mu.Unlock()
}

// View is a snapshot for rendering.
type View struct {
	Open        bool
	Appointment api.Appointment
	Reason      string
	Submitting  bool
	Error       string
}

// View returns the current snapshot.
func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := View{Reason: f.reason, Submitting: f.submitting, Error: f.errMsg}
	if f.appointment != nil {
		v.Open = true
		v.Appointment = *f.appointment
	}
	return v
}

// ValidateReason checks the reason without sending anything.
func ValidateReason(reason string) error {
	if utf8.RuneCountInString(strings.TrimSpace(reason)) < MinReasonLength {
		return feedback.Invalid("reason", "Please give a reason of at least 3 characters.")
	}
	return nil
}

// Submit cancels the open appointment with the trimmed reason. On success
// the dialog closes and a RefreshAppointments command is returned. On any
// failure the dialog stays open.
func (f *Flow) Submit(ctx context.Context) (workflow.Command, error) {
	f.mu.Lock()
	if f.appointment == nil {
		f.mu.Unlock()
		return workflow.Command{}, ErrNotOpen
	}
	if f.submitting {
		f.mu.Unlock()
		return workflow.Command{}, ErrBusy
	}
	if err := ValidateReason(f.reason); err != nil {
		f.errMsg = f.messages.Text(err)
		f.mu.Unlock()
		f.metrics.ObserveRejection("cancellation", "reason")
		return workflow.Command{}, err
	}
	id := f.appointment.ID
	reason := strings.TrimSpace(f.reason)
	f.submitting = true
	f.errMsg = ""
	f.mu.Unlock()

	err := f.api.CancelAppointment(ctx, id, reason)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.errMsg = f.messages.Text(err)
		f.logger.Warn("cancellation failed", "appointment_id", id, "error", err)
		return workflow.Command{}, err
	}
	f.logger.Info("appointment cancelled", "appointment_id", id)
	f.appointment = nil
	f.reason = ""
	return workflow.Command{Kind: workflow.RefreshAppointments}, nil
}
