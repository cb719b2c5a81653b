// Package documents authors prescriptions and medical records against an
// appointment. Only doctors reach these forms, and only for confirmed or
// completed appointments.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/workflow"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

var (
	// ErrNotAllowed is returned by Gate when the forms must stay hidden.
	ErrNotAllowed = errors.New("documents: only doctors may author documents for confirmed or completed appointments")
	// ErrBusy is returned while a form's submission is in flight.
	ErrBusy = errors.New("documents: submission in progress")
)

// Allowed reports whether viewer may author documents for appt.
func Allowed(viewer api.Role, appt api.Appointment) bool {
	if viewer != api.RoleDoctor {
		return false
	}
	return appt.Status == api.StatusConfirmed || appt.Status == api.StatusCompleted
}

// Gate returns ErrNotAllowed unless Allowed.
func Gate(viewer api.Role, appt api.Appointment) error {
	if !Allowed(viewer, appt) {
		return fmt.Errorf("%w (role %s, status %s)", ErrNotAllowed, viewer, appt.Status)
	}
	return nil
}

// Author is the API surface used by both forms.
type Author interface {
	CreatePrescription(ctx context.Context, req api.PrescriptionRequest) (*api.Prescription, error)
	CreateMedicalRecord(ctx context.Context, req api.MedicalRecordRequest) (*api.MedicalRecord, error)
}

// Deps are shared by the forms. Zero values are usable except API.
type Deps struct {
	API      Author
	Logger   *logging.Logger
	Metrics  *metrics.ClientMetrics
	Messages feedback.Messages
}

func (d Deps) logger(component string) *logging.Logger {
	if d.Logger == nil {
		return logging.Default().Component(component)
	}
	return d.Logger.Component(component)
}

// PrescriptionForm holds an ordered list of medication entries.
type PrescriptionForm struct {
	deps        Deps
	logger      *logging.Logger
	appointment api.Appointment

	mu          sync.Mutex
	medications []api.Medication
	notes       string
	errMsg      string
	submitting  bool
}

// NewPrescriptionForm opens a form for appt with one blank entry. It fails
// with ErrNotAllowed when viewer may not author documents.
func NewPrescriptionForm(deps Deps, viewer api.Role, appt api.Appointment) (*PrescriptionForm, error) {
	if err := Gate(viewer, appt); err != nil {
		return nil, err
	}
	return &PrescriptionForm{
		deps:        deps,
		logger:      deps.logger("prescriptions"),
		appointment: appt,
		medications: []api.Medication{{}},
	}, nil
}

// Add appends a blank entry and returns its index.
func (f *PrescriptionForm) Add() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.medications = append(f.medications, api.Medication{})
	return len(f.medications) - 1
}

// Remove deletes the entry at i. The list may become empty.
func (f *PrescriptionForm) Remove(i int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.medications) {
		return fmt.Errorf("documents: no medication entry %d", i)
	}
	f.medications = append(f.medications[:i], f.medications[i+1:]...)
	return nil
}

// Set replaces the entry at i.
func (f *PrescriptionForm) Set(i int, m api.Medication) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.medications) {
		return fmt.Errorf("documents: no medication entry %d", i)
	}
	f.medications[i] = m
	return nil
}

// SetNotes sets the prescription notes.
func (f *PrescriptionForm) SetNotes(notes string) {
	f.mu.Lock()
	f.notes = notes
	f.mu.Unlock()
}

// Medications returns a copy of the entries.
func (f *PrescriptionForm) Medications() []api.Medication {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.Medication(nil), f.medications...)
}

// Error returns the last submit error text.
func (f *PrescriptionForm) Error() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

// Complete returns the entries that carry both a name and a dosage, trimmed.
func Complete(meds []api.Medication) []api.Medication {
	out := make([]api.Medication, 0, len(meds))
	for _, m := range meds {
		m.Name = strings.TrimSpace(m.Name)
		m.Dosage = strings.TrimSpace(m.Dosage)
		m.Frequency = strings.TrimSpace(m.Frequency)
		m.Duration = strings.TrimSpace(m.Duration)
		if m.Name == "" || m.Dosage == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Submit drops incomplete entries and posts the rest. With nothing left
// the submission is rejected locally.
func (f *PrescriptionForm) Submit(ctx context.Context) (*api.Prescription, workflow.Command, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, workflow.Command{}, ErrBusy
	}
	meds := Complete(f.medications)
	if len(meds) == 0 {
		err := feedback.Invalid("medications", "Add at least one medication with a name and dosage.")
		f.errMsg = f.deps.Messages.Text(err)
		f.mu.Unlock()
		f.deps.Metrics.ObserveRejection("prescription", "medications")
		return nil, workflow.Command{}, err
	}
	req := api.PrescriptionRequest{
		AppointmentID: f.appointment.ID,
		Medications:   meds,
		Notes:         strings.TrimSpace(f.notes),
	}
	f.submitting = true
	f.errMsg = ""
	f.mu.Unlock()

	p, err := f.deps.API.CreatePrescription(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.errMsg = f.deps.Messages.Text(err)
		f.logger.Warn("prescription failed", "appointment_id", req.AppointmentID, "error", err)
		return nil, workflow.Command{}, err
	}
	f.logger.Info("prescription created", "appointment_id", req.AppointmentID, "medications", len(meds))
	f.medications = []api.Medication{{}}
	f.notes = ""
	return p, historyRefresh(f.appointment), nil
}

// RecordForm is the medical record editor.
type RecordForm struct {
	deps        Deps
	logger      *logging.Logger
	appointment api.Appointment

	mu         sync.Mutex
	kind       api.RecordType
	title      string
	content    string
	errMsg     string
	submitting bool
}

// NewRecordForm opens a record form for appt.
func NewRecordForm(deps Deps, viewer api.Role, appt api.Appointment) (*RecordForm, error) {
	if err := Gate(viewer, appt); err != nil {
		return nil, err
	}
	return &RecordForm{deps: deps, logger: deps.logger("records"), appointment: appt}, nil
}

// SetType selects the record type.
func (f *RecordForm) SetType(t api.RecordType) {
	f.mu.Lock()
	f.kind = api.RecordType(strings.ToUpper(strings.TrimSpace(string(t))))
	f.mu.Unlock()
}

// SetTitle sets the title.
func (f *RecordForm) SetTitle(title string) {
	f.mu.Lock()
	f.title = title
	f.mu.Unlock()
}

// SetContent sets the body.
func (f *RecordForm) SetContent(content string) {
	f.mu.Lock()
	f.content = content
	f.mu.Unlock()
}

// Error returns the last submit error text.
func (f *RecordForm) Error() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errMsg
}

func (f *RecordForm) validateLocked() error {
	switch {
	case !f.kind.Valid():
		return feedback.Invalid("record_type", "Choose a record type.")
	case strings.TrimSpace(f.title) == "":
		return feedback.Invalid("title", "Title is required.")
	case strings.TrimSpace(f.content) == "":
		return feedback.Invalid("content", "Content is required.")
	}
	return nil
}

// Submit posts the record when every field is filled. Records are
// immutable once created, so a second call while one is in flight
// returns ErrBusy.
func (f *RecordForm) Submit(ctx context.Context) (*api.MedicalRecord, workflow.Command, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return nil, workflow.Command{}, ErrBusy
	}
	if err := f.validateLocked(); err != nil {
		f.errMsg = f.deps.Messages.Text(err)
		f.mu.Unlock()
		var v *feedback.ValidationError
		if errors.As(err, &v) {
			f.deps.Metrics.ObserveRejection("medical_record", v.Field)
		}
		return nil, workflow.Command{}, err
	}
	req := api.MedicalRecordRequest{
		AppointmentID: f.appointment.ID,
		RecordType:    f.kind,
		Title:         strings.TrimSpace(f.title),
		Content:       strings.TrimSpace(f.content),
	}
	f.submitting = true
	f.errMsg = ""
	f.mu.Unlock()

	rec, err := f.deps.API.CreateMedicalRecord(ctx, req)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.errMsg = f.deps.Messages.Text(err)
		f.logger.Warn("medical record failed", "appointment_id", req.AppointmentID, "error", err)
		return nil, workflow.Command{}, err
	}
	f.logger.Info("medical record created", "appointment_id", req.AppointmentID, "record_type", string(req.RecordType))
	f.kind, f.title, f.content = "", "", ""
	return rec, historyRefresh(f.appointment), nil
}

func historyRefresh(appt api.Appointment) workflow.Command {
	return workflow.Command{Kind: workflow.RefreshHistory, PatientID: appt.PatientID}
}
