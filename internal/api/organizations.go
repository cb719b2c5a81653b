package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GetInvitation looks up a pending invitation by token.
func (c *Client) GetInvitation(ctx context.Context, token string) (*Invitation, error) {
	var inv Invitation
	path := "/invitations/token/" + url.PathEscape(token)
	if err := c.do(ctx, call{method: http.MethodGet, route: "invitations.get", path: path, out: &inv}); err != nil {
		return nil, fmt.Errorf("get invitation: %w", err)
	}
	return &inv, nil
}

// AcceptInvitation creates the invited staff account.
func (c *Client) AcceptInvitation(ctx context.Context, req AcceptInvitationRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, call{method: http.MethodPost, route: "invitations.accept", path: "/invitations/accept", body: req, out: &resp}); err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}
	if resp.AccessToken != "" {
		c.SetToken(resp.AccessToken)
	}
	return &resp, nil
}

// ValidateCUI asks the server to verify and deduplicate a tax identifier.
func (c *Client) ValidateCUI(ctx context.Context, cui string) (*CUIValidation, error) {
	var out CUIValidation
	body := map[string]string{"cui": cui}
	if err := c.do(ctx, call{method: http.MethodPost, route: "organizations.validate_cui", path: "/organizations/validate-cui", body: body, out: &out}); err != nil {
		return nil, fmt.Errorf("validate cui: %w", err)
	}
	return &out, nil
}

// RegisterOrganization creates a tenant and its first admin account.
func (c *Client) RegisterOrganization(ctx context.Context, req OrganizationRegistration) (*Organization, error) {
	var org Organization
	if err := c.do(ctx, call{method: http.MethodPost, route: "organizations.register", path: "/organizations/register", body: req, out: &org}); err != nil {
		return nil, fmt.Errorf("register organization: %w", err)
	}
	return &org, nil
}
