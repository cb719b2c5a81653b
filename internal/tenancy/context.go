// Package tenancy carries the organization and location a request is scoped to.
package tenancy

import "context"

type ctxKey string

const (
	orgKey      ctxKey = "clinic.org_id"
	locationKey ctxKey = "clinic.location_id"
)

// Header names the API uses for tenant scoping.
const (
	OrgHeader      = "X-Organization-ID"
	LocationHeader = "X-Location-ID"
)

// WithOrgID stores the organization id in context.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	if orgID == "" {
		return ctx
	}
	return context.WithValue(ctx, orgKey, orgID)
}

// OrgIDFromContext extracts the organization id if present.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	orgID, ok := ctx.Value(orgKey).(string)
	return orgID, ok && orgID != ""
}

// WithLocationID narrows requests to a single clinic location.
func WithLocationID(ctx context.Context, locationID string) context.Context {
	if locationID == "" {
		return ctx
	}
	return context.WithValue(ctx, locationKey, locationID)
}

// LocationIDFromContext extracts the location id if present.
func LocationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(locationKey).(string)
	return id, ok && id != ""
}

// Headers returns the scoping headers for ctx.
func Headers(ctx context.Context) map[string]string {
	out := make(map[string]string, 2)
	if org, ok := OrgIDFromContext(ctx); ok {
		out[OrgHeader] = org
	}
	if loc, ok := LocationIDFromContext(ctx); ok {
		out[LocationHeader] = loc
	}
	return out
}
