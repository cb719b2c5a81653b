package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Login authenticates with email and password. A 401 becomes
// ErrInvalidCredentials; a bearer token in the response is adopted.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.do(ctx, call{method: http.MethodPost, route: "auth.login", path: "/auth/login", body: req, out: &resp})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken != "" {
		c.SetToken(resp.AccessToken)
	}
	return &resp, nil
}

// Register creates a patient account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, call{method: http.MethodPost, route: "auth.register", path: "/auth/register", body: req, out: &resp}); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if resp.AccessToken != "" {
		c.SetToken(resp.AccessToken)
	}
	return &resp, nil
}

// Logout ends the server session. The local token is dropped even if the
// call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.SetToken("")
	if err := c.do(ctx, call{method: http.MethodPost, route: "auth.logout", path: "/auth/logout"}); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// CurrentUser re-validates the session and returns its user.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, call{method: http.MethodGet, route: "auth.me", path: "/auth/me", out: &user}); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return &user, nil
}

// UpdateProfile edits the authenticated user's profile.
func (c *Client) UpdateProfile(ctx context.Context, req ProfileUpdate) (*User, error) {
	var user User
	if err := c.do(ctx, call{method: http.MethodPut, route: "auth.profile", path: "/auth/profile", body: req, out: &user}); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &user, nil
}

// ForgotPassword requests a password reset email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	if err := c.do(ctx, call{method: http.MethodPost, route: "auth.forgot_password", path: "/auth/forgot-password", body: body}); err != nil {
		return fmt.Errorf("forgot password: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using an emailed reset token.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	body := map[string]string{"token": token, "new_password": password}
	if err := c.do(ctx, call{method: http.MethodPost, route: "auth.reset_password", path: "/auth/reset-password", body: body}); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}
