// Package workflow defines the follow-up commands flows emit after a state
// transition, and a dispatcher that runs them. Every fetch trigger in the
// client is one of the Kinds below.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// Kind enumerates follow-up commands.
type Kind int

const (
	None Kind = iota
	FetchDoctors
	FetchSlots
	RefreshAppointments
	RefreshHistory
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case FetchDoctors:
		return "fetch_doctors"
	case FetchSlots:
		return "fetch_slots"
	case RefreshAppointments:
		return "refresh_appointments"
	case RefreshHistory:
		return "refresh_history"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Command is a fetch a flow asks its owner to perform.
type Command struct {
	Kind      Kind
	ClinicID  api.ID
	DoctorID  api.ID
	PatientID api.ID
	Date      time.Time
	// Generation ties a fetch to the selection context that produced it.
	Generation uint64
}

// IsNone reports whether there is nothing to run.
func (c Command) IsNone() bool { return c.Kind == None }

// Handler runs one command.
type Handler func(ctx context.Context, cmd Command) error

// ErrNoHandler is returned for a command kind nobody registered.
var ErrNoHandler = errors.New("workflow: no handler")

// Dispatcher routes commands to handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Kind]Handler
	logger   *logging.Logger
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher(logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{handlers: make(map[Kind]Handler), logger: logger.Component("workflow")}
}

// Handle registers h for kind, replacing any previous handler.
func (d *Dispatcher) Handle(kind Kind, h Handler) {
	d.mu.Lock()
	d.handlers[kind] = h
	d.mu.Unlock()
}

// Dispatch runs cmds in order and stops at the first error. None commands
// are skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, cmds ...Command) error {
	for _, cmd := range cmds {
		if cmd.IsNone() {
			continue
		}
		d.mu.RLock()
		h, ok := d.handlers[cmd.Kind]
		d.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w for %s", ErrNoHandler, cmd.Kind)
		}
		d.logger.Debug("dispatching command", "kind", cmd.Kind.String(), "generation", cmd.Generation)
		if err := h(ctx, cmd); err != nil {
			return fmt.Errorf("workflow: %s: %w", cmd.Kind, err)
		}
	}
	return nil
}
