// Package booking drives slot selection and appointment creation.
//
// The controller is a state machine:
//
//	Idle -> ClinicSelected -> DoctorSelected -> FetchingSlots -> SlotsReady
//	     -> SlotChosen -> Submitting -> Closed | SlotsReady (on failure)
//
// Changing an upstream selection (clinic, doctor, date) discards the
// downstream state. Fetch results are applied only if the selection that
// requested them is still current.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/workflow"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// State is the controller's position in the booking workflow.
type State int

const (
	Idle State = iota
	ClinicSelected
	DoctorSelected
	FetchingSlots
	SlotsReady
	SlotChosen
	Submitting
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ClinicSelected:
		return "clinic_selected"
	case DoctorSelected:
		return "doctor_selected"
	case FetchingSlots:
		return "fetching_slots"
	case SlotsReady:
		return "slots_ready"
	case SlotChosen:
		return "slot_chosen"
	case Submitting:
		return "submitting"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrBusy is returned while a submission is in flight.
	ErrBusy = errors.New("booking: submission in progress")
	// ErrNoClinic is returned when choosing a doctor before a clinic.
	ErrNoClinic = errors.New("booking: select a clinic first")
	// ErrUnknownSlot is returned for a slot the server did not offer.
	ErrUnknownSlot = errors.New("booking: slot not offered")
	// ErrSlotsNotReady is returned when choosing a slot before slots loaded.
	ErrSlotsNotReady = errors.New("booking: slots not loaded")
)

// Backend is the part of the API the controller needs.
type Backend interface {
	ListDoctors(ctx context.Context, clinicID api.ID) ([]api.Doctor, error)
	DoctorAvailability(ctx context.Context, doctorID api.ID, date time.Time) ([]api.Slot, error)
	CreateAppointment(ctx context.Context, req api.CreateAppointmentRequest) (*api.Appointment, error)
}

// Options tune a Controller. Zero values are usable.
type Options struct {
	Clock    func() time.Time
	Location *time.Location
	Logger   *logging.Logger
	Metrics  *metrics.ClientMetrics
	Messages feedback.Messages
}

// View is an immutable snapshot for rendering.
type View struct {
	State          State
	Open           bool
	ClinicID       api.ID
	DoctorID       api.ID
	Date           time.Time
	Doctors        []api.Doctor
	LoadingDoctors bool
	Slots          []api.Slot
	Chosen         *api.Slot
	Notes          string
	Error          string
	Booked         *api.Appointment
}

// NoSlots reports the explicit "no slots" state: loading finished and
// the server offered nothing.
func (v View) NoSlots() bool {
	return v.State == SlotsReady && len(v.Slots) == 0
}

// Controller is safe for concurrent use.
type Controller struct {
	api      Backend
	clock    func() time.Time
	loc      *time.Location
	logger   *logging.Logger
	metrics  *metrics.ClientMetrics
	messages feedback.Messages

	mu             sync.Mutex
	state          State
	open           bool
	clinicID       api.ID
	doctorID       api.ID
	date           time.Time
	doctors        []api.Doctor
	loadingDoctors bool
	slots          []api.Slot
	chosen         *api.Slot
	notes          string
	errMsg         string
	booked         *api.Appointment
	doctorGen      uint64
	slotGen        uint64
}

// NewController builds a controller over backend.
func NewController(backend Backend, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Controller{
		api:      backend,
		clock:    opts.Clock,
		loc:      opts.Location,
		logger:   opts.Logger.Component("booking"),
		metrics:  opts.Metrics,
		messages: opts.Messages,
	}
}

// Register wires the controller's fetch commands into d.
func (c *Controller) Register(d *workflow.Dispatcher) {
	d.Handle(workflow.FetchDoctors, c.Run)
	d.Handle(workflow.FetchSlots, c.Run)
}

// View returns the current snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := View{
		State:          c.state,
		Open:           c.open,
		ClinicID:       c.clinicID,
		DoctorID:       c.doctorID,
		Date:           c.date,
		Doctors:        append([]api.Doctor(nil), c.doctors...),
		LoadingDoctors: c.loadingDoctors,
		Slots:          append([]api.Slot(nil), c.slots...),
		Notes:          c.notes,
		Error:          c.errMsg,
		Booked:         c.booked,
	}
	if c.chosen != nil {
		chosen := *c.chosen
		v.Chosen = &chosen
	}
	return v
}

// Open shows the booking dialog without selecting anything.
func (c *Controller) Open() {
	c.mu.Lock()
	c.open = true
	if c.state == Closed {
		c.state = Idle
	}
	c.mu.Unlock()
}

// Close hides the dialog and discards all selection state.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
	c.state = Idle
}

// SelectClinic picks a clinic. The doctor and slots are cleared and the
// returned command fetches the clinic's doctors.
func (c *Controller) SelectClinic(clinicID api.ID) (workflow.Command, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitting {
		return workflow.Command{}, ErrBusy
	}
	c.open = true
	c.clinicID = clinicID
	c.doctorID = ""
	c.doctors = nil
	c.loadingDoctors = true
	c.clearSlotsLocked()
	c.errMsg = ""
	c.booked = nil
	c.doctorGen++
	// slot fetches for the previous clinic's doctor are now stale
	c.slotGen++
	c.state = ClinicSelected
	c.logger.Debug("clinic selected", "clinic_id", clinicID)
	return workflow.Command{Kind: workflow.FetchDoctors, ClinicID: clinicID, Generation: c.doctorGen}, nil
}

// SelectDoctor picks a doctor. When a date is already chosen the returned
// command fetches that day's slots.
func (c *Controller) SelectDoctor(doctorID api.ID) (workflow.Command, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitting {
		return workflow.Command{}, ErrBusy
	}
	if c.clinicID == "" {
		return workflow.Command{}, ErrNoClinic
	}
	c.doctorID = doctorID
	c.clearSlotsLocked()
	c.errMsg = ""
	c.state = DoctorSelected
	return c.slotCommandLocked(), nil
}

// Selectable reports whether day can be picked on the calendar.
func (c *Controller) Selectable(day time.Time) bool {
	return !c.dayOf(day).Before(c.dayOf(c.clock()))
}

// SelectDate picks a calendar day. Days before today are ignored: no state
// changes and the dialog stays as it was.
func (c *Controller) SelectDate(day time.Time) (workflow.Command, error) {
	if !c.Selectable(day) {
		return workflow.Command{}, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitting {
		return workflow.Command{}, ErrBusy
	}
	c.open = true
	c.date = c.dayOf(day)
	c.clearSlotsLocked()
	c.errMsg = ""
	if c.state == Closed {
		c.state = Idle
	}
	if c.doctorID != "" {
		c.state = DoctorSelected
	}
	return c.slotCommandLocked(), nil
}

// slotCommandLocked invalidates in-flight slot fetches and, if doctor and
// date are both known, starts a new one.
func (c *Controller) slotCommandLocked() workflow.Command {
	c.slotGen++
	if c.doctorID == "" || c.date.IsZero() {
		return workflow.Command{}
	}
	c.state = FetchingSlots
	return workflow.Command{
		Kind:       workflow.FetchSlots,
		ClinicID:   c.clinicID,
		DoctorID:   c.doctorID,
		Date:       c.date,
		Generation: c.slotGen,
	}
}

// Run executes a fetch command produced by this controller. Results for a
// superseded selection are dropped.
func (c *Controller) Run(ctx context.Context, cmd workflow.Command) error {
	switch cmd.Kind {
	case workflow.FetchDoctors:
		return c.fetchDoctors(ctx, cmd)
	case workflow.FetchSlots:
		return c.fetchSlots(ctx, cmd)
	case workflow.None:
		return nil
	default:
		return fmt.Errorf("booking: cannot run %s", cmd.Kind)
	}
}

func (c *Controller) fetchDoctors(ctx context.Context, cmd workflow.Command) error {
	doctors, err := c.api.ListDoctors(ctx, cmd.ClinicID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cmd.Generation != c.doctorGen {
		c.metrics.ObserveStale("booking.doctors")
		c.logger.Debug("dropping stale doctor list", "clinic_id", cmd.ClinicID)
		return nil
	}
	c.loadingDoctors = false
	if err != nil {
		c.errMsg = c.messages.Text(err)
		return err
	}
	c.doctors = doctors
	return nil
}

func (c *Controller) fetchSlots(ctx context.Context, cmd workflow.Command) error {
	slots, err := c.api.DoctorAvailability(ctx, cmd.DoctorID, cmd.Date)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cmd.Generation != c.slotGen {
		c.metrics.ObserveStale("booking.slots")
		c.logger.Debug("dropping stale slots", "doctor_id", cmd.DoctorID, "date", cmd.Date.Format(api.DateLayout))
		return nil
	}
	if err != nil {
		c.state = DoctorSelected
		c.errMsg = c.messages.Text(err)
		return err
	}
	if slots == nil {
		slots = []api.Slot{}
	}
	c.slots = slots
	c.state = SlotsReady
	return nil
}

// ChooseSlot selects one of the offered slots by its time ("09:00") or
// datetime ("2025-06-01T09:00").
func (c *Controller) ChooseSlot(value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != SlotsReady && c.state != SlotChosen {
		return ErrSlotsNotReady
	}
	value = strings.TrimSpace(value)
	for i := range c.slots {
		if c.slots[i].Time == value || c.slots[i].DateTime == value {
			slot := c.slots[i]
			c.chosen = &slot
			c.state = SlotChosen
			c.errMsg = ""
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownSlot, value)
}

// SetNotes sets the optional note sent with the booking.
func (c *Controller) SetNotes(notes string) {
	c.mu.Lock()
	c.notes = notes
	c.mu.Unlock()
}

// Submit books the chosen slot. On success the dialog closes, the
// selection is cleared and a RefreshAppointments command is returned. On
// failure the dialog stays open in SlotsReady with the error message set.
func (c *Controller) Submit(ctx context.Context) (workflow.Command, error) {
	c.mu.Lock()
	if c.state == Submitting {
		c.mu.Unlock()
		return workflow.Command{}, ErrBusy
	}
	if c.state != SlotChosen || c.chosen == nil {
		c.mu.Unlock()
		c.metrics.ObserveRejection("booking", "slot")
		return workflow.Command{}, feedback.Invalid("slot", "Please choose a time slot.")
	}
	if c.clinicID == "" || c.doctorID == "" {
		c.mu.Unlock()
		c.metrics.ObserveRejection("booking", "doctor")
		return workflow.Command{}, feedback.Invalid("doctor", "Choose a clinic and a doctor.")
	}
	req := api.CreateAppointmentRequest{
		DoctorID: c.doctorID,
		ClinicID: c.clinicID,
		DateTime: c.bookingDateTime(*c.chosen),
		Notes:    c.notes,
	}
	c.state = Submitting
	c.errMsg = ""
	c.mu.Unlock()

	appt, err := c.api.CreateAppointment(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = SlotsReady
		c.chosen = nil
		c.errMsg = c.messages.Text(err)
		c.logger.Warn("booking failed", "doctor_id", req.DoctorID, "date_time", req.DateTime, "error", err)
		return workflow.Command{}, err
	}
	c.logger.Info("appointment booked", "appointment_id", appt.ID, "doctor_id", req.DoctorID, "date_time", req.DateTime)
	c.resetLocked()
	c.booked = appt
	c.state = Closed
	return workflow.Command{Kind: workflow.RefreshAppointments}, nil
}

func (c *Controller) bookingDateTime(slot api.Slot) string {
	if slot.DateTime != "" {
		if t, err := api.ParseDateTime(slot.DateTime, c.loc); err == nil {
			return t.Format(api.DateTimeLayout)
		}
		return slot.DateTime
	}
	return c.date.Format(api.DateLayout) + "T" + slot.Time
}

func (c *Controller) clearSlotsLocked() {
	c.slots = nil
	c.chosen = nil
}

func (c *Controller) resetLocked() {
	c.open = false
	c.clinicID = ""
	c.doctorID = ""
	c.date = time.Time{}
	c.doctors = nil
	c.loadingDoctors = false
	c.clearSlotsLocked()
	c.notes = ""
	c.errMsg = ""
	c.doctorGen++
	c.slotGen++
}

func (c *Controller) dayOf(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}
