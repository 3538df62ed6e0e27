package user

import (
	"context"

	"github.com/maplewind/maplewind-api/internal/user/entity"
)

type ctxKey struct{}

// WithCurrent returns a copy of ctx carrying the authenticated user.
func WithCurrent(ctx context.Context, u *entity.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// Current returns the authenticated user stored by the auth middleware.
func Current(ctx context.Context) (*entity.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*entity.User)
	return u, ok && u != nil
}
