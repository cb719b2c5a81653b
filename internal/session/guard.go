package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// ErrNotAuthenticated means the server rejected the session.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// ErrForbidden means the user's role may not open the view.
var ErrForbidden = errors.New("session: role not permitted")

// UserFetcher is the API call used to re-validate a session.
type UserFetcher interface {
	CurrentUser(ctx context.Context) (*api.User, error)
}

// Access is the result of entering a protected view.
type Access struct {
	User api.User
	// JustAuthenticated is a one-shot UX hint set at login. It is never
	// used for authorization.
	JustAuthenticated bool
}

// Guard re-validates the session with the server on every protected view load.
type Guard struct {
	api    UserFetcher
	store  *Store
	tokens TokenStore
	logger *logging.Logger
}

// NewGuard wires a guard. tokens may be nil.
func NewGuard(fetcher UserFetcher, store *Store, tokens TokenStore, logger *logging.Logger) *Guard {
	if logger == nil {
		logger = logging.Default()
	}
	return &Guard{api: fetcher, store: store, tokens: tokens, logger: logger.Component("session")}
}

// Require loads the user from the server. When roles are given the user
// must hold one of them.
func (g *Guard) Require(ctx context.Context, roles ...api.Role) (*Access, error) {
	user, err := g.api.CurrentUser(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			g.store.Clear()
			if g.tokens != nil {
				if derr := g.tokens.DeleteToken(ctx); derr != nil {
					g.logger.Warn("failed to drop rejected session token", "error", derr)
				}
			}
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("session: revalidate: %w", err)
	}
	g.store.Set(*user, g.store.ExpiresAt())

	if len(roles) > 0 && !hasRole(user.Role, roles) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, user.Role)
	}

	access := &Access{User: *user}
	if g.tokens != nil {
		just, err := g.tokens.ConsumeAuthenticated(ctx)
		if err != nil {
			g.logger.Warn("failed to read authenticated flag", "error", err)
		}
		access.JustAuthenticated = just
	}
	return access, nil
}

func hasRole(role api.Role, roles []api.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
