// Package staff holds the clinic-personnel flows: appointment decisions,
// weekly availability, doctor profile, the clinic dashboard and patient
// history lookups.
package staff

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/appointments"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/internal/workflow"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// ErrTransition is returned for a status change the appointment's current
// status does not allow.
var ErrTransition = errors.New("staff: status change not allowed")

// Backend is the API surface used by Desk.
type Backend interface {
	UpdateAppointment(ctx context.Context, id api.ID, req api.UpdateAppointmentRequest) (*api.Appointment, error)
	SetDoctorAvailability(ctx context.Context, id api.ID, windows []api.AvailabilityWindow) error
	UpdateDoctor(ctx context.Context, id api.ID, req api.DoctorUpdate) (*api.Doctor, error)
	GetClinic(ctx context.Context, id api.ID) (*api.Clinic, error)
	ClinicStats(ctx context.Context, id api.ID) (*api.ClinicStats, error)
	appointments.Lister
}

// Desk runs staff actions for the signed-in user.
type Desk struct {
	api      Backend
	identity session.Identity
	history  *appointments.History
	logger   *logging.Logger
	metrics  *metrics.ClientMetrics
}

// NewDesk wires a desk. logger and m may be nil.
func NewDesk(backend Backend, identity session.Identity, logger *logging.Logger, m *metrics.ClientMetrics) *Desk {
	if logger == nil {
		logger = logging.Default()
	}
	return &Desk{
		api:      backend,
		identity: identity,
		history:  appointments.NewHistory(backend, identity, logger),
		logger:   logger.Component("staff"),
		metrics:  m,
	}
}

func (d *Desk) staffUser() (api.User, error) {
	user, ok := d.identity.Current()
	if !ok {
		return api.User{}, session.ErrNotAuthenticated
	}
	if !user.Role.IsStaff() {
		return api.User{}, fmt.Errorf("%w: %s", session.ErrForbidden, user.Role)
	}
	return user, nil
}

// Action is a staff decision on an appointment.
type Action string

const (
	Confirm  Action = "confirm"
	Reject   Action = "reject"
	Complete Action = "complete"
)

// Target returns the status the action moves to and the statuses it may
// start from.
func (a Action) Target() (api.AppointmentStatus, []api.AppointmentStatus, error) {
	switch a {
	case Confirm:
		return api.StatusConfirmed, []api.AppointmentStatus{api.StatusScheduled}, nil
	case Reject:
		return api.StatusCancelled, []api.AppointmentStatus{api.StatusScheduled, api.StatusConfirmed}, nil
	case Complete:
		return api.StatusCompleted, []api.AppointmentStatus{api.StatusConfirmed}, nil
	}
	return "", nil, fmt.Errorf("staff: unknown action %q", a)
}

// Decide applies action to appt. The new status is not assumed: the
// returned command re-fetches the list from the server.
func (d *Desk) Decide(ctx context.Context, action Action, appt api.Appointment) (*api.Appointment, workflow.Command, error) {
	if _, err := d.staffUser(); err != nil {
		return nil, workflow.Command{}, err
	}
	target, from, err := action.Target()
	if err != nil {
		return nil, workflow.Command{}, err
	}
	if !slices.Contains(from, appt.Status) {
		return nil, workflow.Command{}, fmt.Errorf("%w: %s on %s appointment", ErrTransition, action, appt.Status)
	}
	updated, err := d.api.UpdateAppointment(ctx, appt.ID, api.UpdateAppointmentRequest{Status: &target})
	if err != nil {
		d.logger.Warn("appointment decision failed", "appointment_id", appt.ID, "action", string(action), "error", err)
		return nil, workflow.Command{}, err
	}
	d.logger.Info("appointment decision applied", "appointment_id", appt.ID, "action", string(action))
	return updated, workflow.Command{Kind: workflow.RefreshAppointments}, nil
}

// canEditDoctor allows a doctor to edit their own record and
// administrators to edit anyone.
func canEditDoctor(user api.User, doctorID api.ID) bool {
	switch user.Role {
	case api.RoleAdmin, api.RoleLocationAdmin, api.RoleSuperAdmin:
		return true
	case api.RoleDoctor:
		return user.DoctorID == doctorID
	}
	return false
}

// SaveAvailability replaces a doctor's weekly schedule.
func (d *Desk) SaveAvailability(ctx context.Context, doctorID api.ID, windows []api.AvailabilityWindow) error {
	user, err := d.staffUser()
	if err != nil {
		return err
	}
	if !canEditDoctor(user, doctorID) {
		return fmt.Errorf("%w: cannot edit doctor %s", session.ErrForbidden, doctorID)
	}
	if err := ValidateWindows(windows); err != nil {
		var v *feedback.ValidationError
		if errors.As(err, &v) {
			d.metrics.ObserveRejection("availability", v.Field)
		}
		return err
	}
	sorted := append([]api.AvailabilityWindow(nil), windows...)
	SortWindows(sorted)
	if err := d.api.SetDoctorAvailability(ctx, doctorID, sorted); err != nil {
		return err
	}
	d.logger.Info("availability saved", "doctor_id", doctorID, "windows", len(sorted))
	return nil
}

// UpdateProfile edits a doctor's public profile.
func (d *Desk) UpdateProfile(ctx context.Context, doctorID api.ID, update api.DoctorUpdate) (*api.Doctor, error) {
	user, err := d.staffUser()
	if err != nil {
		return nil, err
	}
	if !canEditDoctor(user, doctorID) {
		return nil, fmt.Errorf("%w: cannot edit doctor %s", session.ErrForbidden, doctorID)
	}
	if update.Specialty != nil && strings.TrimSpace(*update.Specialty) == "" {
		d.metrics.ObserveRejection("doctor_profile", "specialty")
		return nil, feedback.Invalid("specialty", "Specialty cannot be blank.")
	}
	return d.api.UpdateDoctor(ctx, doctorID, update)
}

// Dashboard is a clinic's summary page.
type Dashboard struct {
	Clinic api.Clinic
	Stats  api.ClinicStats
}

// Dashboard loads the clinic and its stats in parallel.
func (d *Desk) Dashboard(ctx context.Context, clinicID api.ID) (*Dashboard, error) {
	if _, err := d.staffUser(); err != nil {
		return nil, err
	}
	var (
		clinic *api.Clinic
		stats  *api.ClinicStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clinic, err = d.api.GetClinic(gctx, clinicID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = d.api.ClinicStats(gctx, clinicID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Dashboard{Clinic: *clinic, Stats: *stats}, nil
}

// PatientHistory loads and summarizes one patient's history.
func (d *Desk) PatientHistory(ctx context.Context, patientID api.ID) (appointments.Summary, error) {
	if _, err := d.staffUser(); err != nil {
		return appointments.Summary{}, err
	}
	if patientID == "" {
		return appointments.Summary{}, feedback.Invalid("patient_id", "Choose a patient.")
	}
	return d.history.Load(ctx, patientID)
}
