// Package appointments loads, filters and projects the appointments visible
// to the signed-in user.
package appointments

import (
	"context"
	"sync"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/internal/workflow"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// Lister fetches appointments and patient history.
type Lister interface {
	ListAppointments(ctx context.Context) ([]api.Appointment, error)
	PatientHistory(ctx context.Context, patientID api.ID) (*api.PatientHistory, error)
}

// Loader fetches the appointments the current identity may see.
type Loader struct {
	api      Lister
	identity session.Identity
}

// NewLoader builds a loader.
func NewLoader(lister Lister, identity session.Identity) *Loader {
	return &Loader{api: lister, identity: identity}
}

// Load returns the visible appointments and the viewer. Patients get only
// the appointments whose patient is themselves. Staff get the whole
// server-scoped list with its ownership flags.
func (l *Loader) Load(ctx context.Context) ([]api.Appointment, api.User, error) {
	user, ok := l.identity.Current()
	if !ok {
		return nil, api.User{}, session.ErrNotAuthenticated
	}
	list, err := l.api.ListAppointments(ctx)
	if err != nil {
		return nil, user, err
	}
	if user.Role.IsStaff() {
		return list, user, nil
	}
	own := make([]api.Appointment, 0, len(list))
	for _, a := range list {
		if a.PatientID == user.ID {
			own = append(own, a)
		}
	}
	return own, user, nil
}

// Board holds the fetched list and the current filter. Filter changes are
// recomputed locally; only Refresh talks to the server.
type Board struct {
	loader   *Loader
	logger   *logging.Logger
	metrics  *metrics.ClientMetrics
	messages feedback.Messages

	mu      sync.Mutex
	viewer  api.User
	items   []api.Appointment
	filter  Filter
	loading bool
	loaded  bool
	errMsg  string
	gen     uint64
}

// BoardOptions tune a Board. Zero values are usable.
type BoardOptions struct {
	Filter   Filter
	Logger   *logging.Logger
	Metrics  *metrics.ClientMetrics
	Messages feedback.Messages
}

// NewBoard builds a board over loader.
func NewBoard(loader *Loader, opts BoardOptions) *Board {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	return &Board{
		loader:   loader,
		logger:   opts.Logger.Component("appointments"),
		metrics:  opts.Metrics,
		messages: opts.Messages,
		filter:   opts.Filter,
	}
}

// Register handles RefreshAppointments commands.
func (b *Board) Register(d *workflow.Dispatcher) {
	d.Handle(workflow.RefreshAppointments, func(ctx context.Context, _ workflow.Command) error {
		return b.Refresh(ctx)
	})
}

// Refresh re-fetches the list. A refresh that finishes after a newer one
// started is discarded.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	b.gen++
	gen := b.gen
	b.loading = true
	b.errMsg = ""
	b.mu.Unlock()

	list, viewer, err := b.loader.Load(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.gen {
		b.metrics.ObserveStale("appointments.list")
		return nil
	}
	b.loading = false
	if err != nil {
		b.errMsg = b.messages.Text(err)
		b.logger.Warn("appointment refresh failed", "error", err)
		return err
	}
	b.viewer = viewer
	b.items = list
	b.loaded = true
	b.logger.Debug("appointments loaded", "count", len(list), "role", string(viewer.Role))
	return nil
}

// SetFilter replaces the filter.
func (b *Board) SetFilter(f Filter) {
	b.mu.Lock()
	b.filter = f
	b.mu.Unlock()
}

// BoardView is a snapshot for rendering.
type BoardView struct {
	Viewer  api.User
	Filter  Filter
	Items   []api.Appointment
	Events  []Event
	Total   int
	Loading bool
	Loaded  bool
	Error   string
}

// View applies the filter to the last fetched list.
func (b *Board) View() BoardView {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.filter.Apply(b.items, b.viewer.Role)
	return BoardView{
		Viewer:  b.viewer,
		Filter:  b.filter,
		Items:   items,
		Events:  Project(items, b.viewer.Role),
		Total:   len(b.items),
		Loading: b.loading,
		Loaded:  b.loaded,
		Error:   b.errMsg,
	}
}

// Find returns the fetched appointment with id.
func (b *Board) Find(id api.ID) (api.Appointment, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.items {
		if a.ID == id {
			return a, true
		}
	}
	return api.Appointment{}, false
}

// History loads and summarizes a patient's history.
type History struct {
	api      Lister
	identity session.Identity
	logger   *logging.Logger

	mu      sync.Mutex
	summary Summary
	patient api.ID
	gen     uint64
}

// NewHistory builds a history view.
func NewHistory(lister Lister, identity session.Identity, logger *logging.Logger) *History {
	if logger == nil {
		logger = logging.Default()
	}
	return &History{api: lister, identity: identity, logger: logger.Component("history")}
}

// Register handles RefreshHistory commands. A command without a patient id
// loads the signed-in user's own history.
func (h *History) Register(d *workflow.Dispatcher) {
	d.Handle(workflow.RefreshHistory, func(ctx context.Context, cmd workflow.Command) error {
		_, err := h.Load(ctx, cmd.PatientID)
		return err
	})
}

// Load fetches history for patientID, or for the current user when empty.
func (h *History) Load(ctx context.Context, patientID api.ID) (Summary, error) {
	if patientID == "" {
		user, ok := h.identity.Current()
		if !ok {
			return Summary{}, session.ErrNotAuthenticated
		}
		patientID = user.ID
	}
	h.mu.Lock()
	h.gen++
	gen := h.gen
	h.mu.Unlock()

	hist, err := h.api.PatientHistory(ctx, patientID)
	if err != nil {
		h.logger.Warn("history fetch failed", "patient_id", patientID, "error", err)
		return Summary{}, err
	}
	s := Summarize(*hist)

	h.mu.Lock()
	defer h.mu.Unlock()
	if gen == h.gen {
		h.summary = s
		h.patient = patientID
	}
	return s, nil
}

// Summary returns the last loaded summary and whose it is.
func (h *History) Summary() (Summary, api.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.summary, h.patient
}
