package http

import (
	"context"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
)

type contextKey string

const authContextKey contextKey = "auth_context"

func WithAuthContext(ctx context.Context, ac domain.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

func AuthContextFrom(ctx context.Context) (domain.AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey).(domain.AuthContext)
	return ac, ok
}
