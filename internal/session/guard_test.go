package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/apitest"
)

func newClient(t *testing.T, srv *apitest.Server, token string) *api.Client {
	t.Helper()
	c, err := api.New(api.Config{BaseURL: srv.URL, Token: token})
	require.NoError(t, err)
	return c
}

func TestGuard_RevalidatesOnEveryLoad(t *testing.T) {
	srv := apitest.New(t)
	tokens := srv.Seed()
	store := NewStore()
	flags := NewMemoryStore()
	guard := NewGuard(newClient(t, srv, tokens.Patient), store, flags, nil)
	ctx := context.Background()
	require.NoError(t, flags.MarkAuthenticated(ctx))

	access, err := guard.Require(ctx)
	require.NoError(t, err)
	assert.Equal(t, apitest.PatientUserID, access.User.ID)
	assert.True(t, access.JustAuthenticated)

	access, err = guard.Require(ctx)
	require.NoError(t, err)
	assert.False(t, access.JustAuthenticated, "flag is one-shot")

	assert.Len(t, srv.CallsTo("GET", "/auth/me"), 2)
	user, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, "Maria Patient", user.Name)
}

func TestGuard_FlagDoesNotBypassServer(t *testing.T) {
	srv := apitest.New(t)
	srv.Seed()
	store := NewStore()
	store.Set(api.User{ID: "stale", Role: api.RoleDoctor}, time.Time{})
	flags := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, flags.SaveToken(ctx, "bogus", 0))
	require.NoError(t, flags.MarkAuthenticated(ctx))

	guard := NewGuard(newClient(t, srv, "bogus"), store, flags, nil)
	_, err := guard.Require(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, ok := store.Current()
	assert.False(t, ok)
	_, err = flags.LoadToken(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestGuard_RoleRestriction(t *testing.T) {
	srv := apitest.New(t)
	tokens := srv.Seed()
	guard := NewGuard(newClient(t, srv, tokens.Patient), NewStore(), nil, nil)

	_, err := guard.Require(context.Background(), api.RoleDoctor)
	assert.ErrorIs(t, err, ErrForbidden)

	guard = NewGuard(newClient(t, srv, tokens.Ana), NewStore(), nil, nil)
	access, err := guard.Require(context.Background(), api.RoleDoctor, api.RoleAssistant)
	require.NoError(t, err)
	assert.Equal(t, api.RoleDoctor, access.User.Role)
}

func TestStore(t *testing.T) {
	s := NewStore()
	_, ok := s.Current()
	assert.False(t, ok)

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Set(api.User{ID: "1"}, exp)
	u, ok := s.Current()
	assert.True(t, ok)
	assert.Equal(t, api.ID("1"), u.ID)
	assert.Equal(t, exp, s.ExpiresAt())

	s.Clear()
	_, ok = s.Current()
	assert.False(t, ok)
}
