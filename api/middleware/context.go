package middleware

import (
	"context"

	"github.com/agrolease/agrolease-backend/pkg/enums"
)

type contextKey uint8

const (
	ctxUserID contextKey = iota + 1
	ctxRole
	ctxAccessID
)

// fromContext returns the zero value when ctx is nil or the key is unset.
func fromContext[T any](ctx context.Context, key contextKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	if v, ok := ctx.Value(key).(T); ok {
		return v
	}
	return zero
}

func UserIDFromContext(ctx context.Context) string {
	return fromContext[string](ctx, ctxUserID)
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	return fromContext[enums.UserRole](ctx, ctxRole)
}

// AccessIDFromContext returns the jti of the bearer token; logout revokes the
// refresh session stored under it.
func AccessIDFromContext(ctx context.Context) string {
	return fromContext[string](ctx, ctxAccessID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	return withValue(ctx, ctxRole, role)
}

func withAccessID(ctx context.Context, accessID string) context.Context {
	return withValue(ctx, ctxAccessID, accessID)
}

func withValue(ctx context.Context, key contextKey, v any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}
