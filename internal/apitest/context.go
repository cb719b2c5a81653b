package apitest

import (
	"context"

	"github.com/wolfman30/clinic-portal/internal/api"
)

func withUser(ctx context.Context, u api.User) context.Context {
	return context.WithValue(ctx, ctxUser{}, u)
}

func userFrom(ctx context.Context) api.User {
	u, _ := ctx.Value(ctxUser{}).(api.User)
	return u
}
