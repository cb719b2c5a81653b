// Package cli is the clinicctl command tree. It is the composition root:
// the session store, guard and flows are built here and handed to each
// command.
package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wolfman30/clinic-portal/internal/account"
	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/appointments"
	"github.com/wolfman30/clinic-portal/internal/config"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/internal/staff"
	"github.com/wolfman30/clinic-portal/internal/workflow"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// Options are the dependencies built by bootstrap. API and Config are
// required.
type Options struct {
	Config   *config.Config
	Logger   *logging.Logger
	API      *api.Client
	Tokens   session.TokenStore
	Registry *prometheus.Registry
	Metrics  *metrics.ClientMetrics
	Messages feedback.Messages
	Clock    func() time.Time
	Location *time.Location
}

// App holds the per-process state shared by all commands.
type App struct {
	cfg      *config.Config
	logger   *logging.Logger
	api      *api.Client
	session  *session.Store
	tokens   session.TokenStore
	registry *prometheus.Registry
	metrics  *metrics.ClientMetrics
	messages feedback.Messages
	clock    func() time.Time
	loc      *time.Location

	account *account.Service
	guard   *session.Guard
}

// New wires an App.
func New(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Tokens == nil {
		opts.Tokens = session.NewMemoryStore()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Config == nil {
		opts.Config = &config.Config{}
	}
	store := session.NewStore()
	return &App{
		cfg:      opts.Config,
		logger:   opts.Logger,
		api:      opts.API,
		session:  store,
		tokens:   opts.Tokens,
		registry: opts.Registry,
		metrics:  opts.Metrics,
		messages: opts.Messages,
		clock:    opts.Clock,
		loc:      opts.Location,
		account: account.NewService(opts.API, store, account.Options{
			Tokens:     opts.Tokens,
			SessionTTL: opts.Config.SessionTTL,
			Clock:      opts.Clock,
			Logger:     opts.Logger,
			Metrics:    opts.Metrics,
		}),
		guard: session.NewGuard(opts.API, store, opts.Tokens, opts.Logger),
	}
}

// require resumes a stored session and re-validates it with the server.
// The welcome banner is printed once after a fresh login.
func (a *App) require(cmd *cobra.Command, roles ...api.Role) (api.User, error) {
	ctx := cmd.Context()
	if _, err := a.account.Resume(ctx); err != nil {
		a.logger.Warn("stored session unreadable", "error", err)
	}
	access, err := a.guard.Require(ctx, roles...)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotAuthenticated):
			return api.User{}, fmt.Errorf("not signed in, run \"clinicctl login\": %w", err)
		case errors.Is(err, session.ErrForbidden):
			return api.User{}, err
		}
		return api.User{}, a.fail(err)
	}
	if access.JustAuthenticated {
		fmt.Fprintf(cmd.ErrOrStderr(), "Welcome, %s.\n", access.User.Name)
	}
	return access.User, nil
}

// userError shows the mapped message while keeping the cause for errors.Is.
type userError struct {
	text string
	err  error
}

func (e *userError) Error() string { return e.text }
func (e *userError) Unwrap() error { return e.err }

// fail maps err to the text a user should see.
func (a *App) fail(err error) error {
	if err == nil {
		return nil
	}
	return &userError{text: a.messages.Text(err), err: err}
}

func (a *App) dispatcher() *workflow.Dispatcher {
	return workflow.NewDispatcher(a.logger)
}

func (a *App) board(filter appointments.Filter) *appointments.Board {
	return appointments.NewBoard(appointments.NewLoader(a.api, a.session), appointments.BoardOptions{
		Filter:   filter,
		Logger:   a.logger,
		Metrics:  a.metrics,
		Messages: a.messages,
	})
}

// findAppointment loads the visible list and picks id from it.
func (a *App) findAppointment(cmd *cobra.Command, id string) (api.Appointment, *appointments.Board, error) {
	board := a.board(appointments.Filter{IncludeColleagues: true})
	if err := board.Refresh(cmd.Context()); err != nil {
		return api.Appointment{}, nil, a.fail(err)
	}
	appt, ok := board.Find(api.ID(id))
	if !ok {
		return api.Appointment{}, nil, fmt.Errorf("appointment %s not found", id)
	}
	return appt, board, nil
}

func (a *App) desk() *staff.Desk {
	return staff.NewDesk(a.api, a.session, a.logger, a.metrics)
}

func (a *App) parseDate(value string) (time.Time, error) {
	day, err := time.ParseInLocation(api.DateLayout, value, a.loc)
	if err != nil {
		return time.Time{}, feedback.Invalid("date", "Use the YYYY-MM-DD format.")
	}
	return day, nil
}
