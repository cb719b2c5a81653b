// Package account runs the authentication, profile, invitation and
// organization sign-up flows. Every form is validated locally before the
// API is called.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinic-portal/internal/api"
	"github.com/wolfman30/clinic-portal/internal/feedback"
	"github.com/wolfman30/clinic-portal/internal/observability/metrics"
	"github.com/wolfman30/clinic-portal/internal/session"
	"github.com/wolfman30/clinic-portal/pkg/logging"
)

// Backend is the API surface used by Service.
type Backend interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
	UpdateProfile(ctx context.Context, req api.ProfileUpdate) (*api.User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	GetInvitation(ctx context.Context, token string) (*api.Invitation, error)
	AcceptInvitation(ctx context.Context, req api.AcceptInvitationRequest) (*api.AuthResponse, error)
	ValidateCUI(ctx context.Context, cui string) (*api.CUIValidation, error)
	RegisterOrganization(ctx context.Context, req api.OrganizationRegistration) (*api.Organization, error)
	SetToken(token string)
	Token() string
}

// Service owns session establishment and teardown.
type Service struct {
	api     Backend
	store   *session.Store
	tokens  session.TokenStore
	ttl     time.Duration
	clock   func() time.Time
	logger  *logging.Logger
	metrics *metrics.ClientMetrics
}

// Options configure a Service.
type Options struct {
	// Tokens persists the bearer token between processes. Optional.
	Tokens session.TokenStore
	// SessionTTL bounds how long a stored token is kept when the token
	// itself carries no expiry.
	SessionTTL time.Duration
	Clock      func() time.Time
	Logger     *logging.Logger
	Metrics    *metrics.ClientMetrics
}

// NewService wires a service.
func NewService(backend Backend, store *session.Store, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 8 * time.Hour
	}
	return &Service{
		api:     backend,
		store:   store,
		tokens:  opts.Tokens,
		ttl:     opts.SessionTTL,
		clock:   opts.Clock,
		logger:  opts.Logger.Component("account"),
		metrics: opts.Metrics,
	}
}

func (s *Service) reject(flow string, err error) error {
	var v *feedback.ValidationError
	if errors.As(err, &v) {
		s.metrics.ObserveRejection(flow, v.Field)
	}
	return err
}

// Login signs in with email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*api.User, error) {
	if err := firstErr(ValidateEmail(email), required("password", password, "Password is required.")); err != nil {
		return nil, s.reject("login", err)
	}
	resp, err := s.api.Login(ctx, api.LoginRequest{Email: strings.TrimSpace(email), Password: password})
	if err != nil {
		s.logger.Warn("login failed", "email", strings.TrimSpace(email), "error", err)
		return nil, err
	}
	return s.establish(ctx, resp)
}

// RegisterForm is the patient sign-up form.
type RegisterForm struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// Register creates a patient account and signs in.
func (s *Service) Register(ctx context.Context, f RegisterForm) (*api.User, error) {
	if err := firstErr(
		required("name", f.Name, "Name is required."),
		ValidateEmail(f.Email),
		ValidatePassword(f.Password, f.ConfirmPassword),
	); err != nil {
		return nil, s.reject("register", err)
	}
	resp, err := s.api.Register(ctx, api.RegisterRequest{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Password: f.Password,
		Phone:    strings.TrimSpace(f.Phone),
	})
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, resp)
}

// establish records a fresh session: identity, persisted token and the
// one-shot "just authenticated" flag.
func (s *Service) establish(ctx context.Context, resp *api.AuthResponse) (*api.User, error) {
	token := resp.AccessToken
	if token == "" {
		token = s.api.Token()
	}
	expires := time.Time{}
	ttl := s.ttl
	if token != "" {
		if info, err := api.InspectToken(token); err == nil && !info.ExpiresAt.IsZero() {
			expires = info.ExpiresAt
			ttl = expires.Sub(s.clock())
		}
	}
	s.store.Set(resp.User, expires)

	if s.tokens != nil {
		if token != "" && ttl > 0 {
			if err := s.tokens.SaveToken(ctx, token, ttl); err != nil {
				return nil, fmt.Errorf("account: %w", err)
			}
		}
		if err := s.tokens.MarkAuthenticated(ctx); err != nil {
			s.logger.Warn("failed to set authenticated flag", "error", err)
		}
	}
	s.logger.Info("signed in", "user_id", resp.User.ID, "role", string(resp.User.Role))
	return &resp.User, nil
}

// Resume adopts a token stored by an earlier Login. It does not contact the
// server; session.Guard validates it on the next protected view.
func (s *Service) Resume(ctx context.Context) (bool, error) {
	if s.tokens == nil {
		return false, nil
	}
	token, err := s.tokens.LoadToken(ctx)
	if errors.Is(err, session.ErrNoToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if info, err := api.InspectToken(token); err == nil && info.Expired(s.clock()) {
		_ = s.tokens.DeleteToken(ctx)
		return false, nil
	}
	s.api.SetToken(token)
	return true, nil
}

// Logout ends the session. Local state is cleared even if the server call
// fails.
func (s *Service) Logout(ctx context.Context) error {
	err := s.api.Logout(ctx)
	s.store.Clear()
	if s.tokens != nil {
		if derr := s.tokens.DeleteToken(ctx); derr != nil {
			s.logger.Warn("failed to delete stored token", "error", derr)
		}
	}
	if err != nil && !errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	return nil
}

// UpdateProfile edits the signed-in user's profile.
func (s *Service) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*api.User, error) {
	if update.Name != nil {
		if err := required("name", *update.Name, "Name is required."); err != nil {
			return nil, s.reject("profile", err)
		}
		trimmed := strings.TrimSpace(*update.Name)
		update.Name = &trimmed
	}
	if update.DateOfBirth != nil && *update.DateOfBirth != "" {
		if _, err := time.Parse(api.DateLayout, *update.DateOfBirth); err != nil {
			return nil, s.reject("profile", feedback.Invalid("date_of_birth", "Use the YYYY-MM-DD format."))
		}
	}
	user, err := s.api.UpdateProfile(ctx, update)
	if err != nil {
		return nil, err
	}
	s.store.Set(*user, s.store.ExpiresAt())
	return user, nil
}

// ForgotPassword asks the server to email a reset link.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	if err := ValidateEmail(email); err != nil {
		return s.reject("forgot_password", err)
	}
	return s.api.ForgotPassword(ctx, strings.TrimSpace(email))
}

// ResetPassword sets a new password with an emailed token.
func (s *Service) ResetPassword(ctx context.Context, token, password, confirm string) error {
	if err := firstErr(
		required("token", token, "The reset link is invalid."),
		ValidatePassword(password, confirm),
	); err != nil {
		return s.reject("reset_password", err)
	}
	return s.api.ResetPassword(ctx, strings.TrimSpace(token), password)
}

// Invitation looks up a pending staff invitation.
func (s *Service) Invitation(ctx context.Context, token string) (*api.Invitation, error) {
	if err := required("token", token, "The invitation link is invalid."); err != nil {
		return nil, s.reject("invitation", err)
	}
	return s.api.GetInvitation(ctx, strings.TrimSpace(token))
}

// AcceptForm completes an invitation.
type AcceptForm struct {
	Token           string
	Name            string
	Phone           string
	Password        string
	ConfirmPassword string
}

// AcceptInvitation creates the invited account and signs in.
func (s *Service) AcceptInvitation(ctx context.Context, f AcceptForm) (*api.User, error) {
	if err := firstErr(
		required("token", f.Token, "The invitation link is invalid."),
		required("name", f.Name, "Name is required."),
		ValidatePassword(f.Password, f.ConfirmPassword),
	); err != nil {
		return nil, s.reject("invitation", err)
	}
	resp, err := s.api.AcceptInvitation(ctx, api.AcceptInvitationRequest{
		Token:    strings.TrimSpace(f.Token),
		Name:     strings.TrimSpace(f.Name),
		Password: f.Password,
		Phone:    strings.TrimSpace(f.Phone),
	})
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, resp)
}

// ValidateCUI normalizes and checks a company identifier with the server.
func (s *Service) ValidateCUI(ctx context.Context, raw string) (string, *api.CUIValidation, error) {
	cui := NormalizeCUI(raw)
	if cui == "" {
		return "", nil, s.reject("organization", feedback.Invalid("cui", "CUI is required."))
	}
	res, err := s.api.ValidateCUI(ctx, cui)
	if err != nil {
		return cui, nil, err
	}
	return cui, res, nil
}

// OrganizationForm registers a new clinic organization and its admin.
type OrganizationForm struct {
	CUI             string
	Name            string
	Address         string
	Phone           string
	AdminName       string
	AdminEmail      string
	AdminPassword   string
	ConfirmPassword string
}

// RegisterOrganization validates the CUI with the server, then registers.
// An invalid CUI stops the flow with the server's message.
func (s *Service) RegisterOrganization(ctx context.Context, f OrganizationForm) (*api.Organization, error) {
	if err := firstErr(
		required("name", f.Name, "Organization name is required."),
		required("admin_name", f.AdminName, "Administrator name is required."),
		ValidateEmail(f.AdminEmail),
		ValidatePassword(f.AdminPassword, f.ConfirmPassword),
	); err != nil {
		return nil, s.reject("organization", err)
	}
	cui, check, err := s.ValidateCUI(ctx, f.CUI)
	if err != nil {
		return nil, err
	}
	if !check.Valid {
		msg := check.Message
		if msg == "" {
			msg = "The CUI could not be validated."
		}
		return nil, s.reject("organization", feedback.Invalid("cui", msg))
	}
	org, err := s.api.RegisterOrganization(ctx, api.OrganizationRegistration{
		CUI:           cui,
		Name:          strings.TrimSpace(f.Name),
		Address:       strings.TrimSpace(f.Address),
		Phone:         strings.TrimSpace(f.Phone),
		AdminName:     strings.TrimSpace(f.AdminName),
		AdminEmail:    strings.TrimSpace(f.AdminEmail),
		AdminPassword: f.AdminPassword,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("organization registered", "organization_id", org.ID, "cui", cui)
	return org, nil
}
