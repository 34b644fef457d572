package middleware

import (
	"context"

	"github.com/angelmondragon/spree-storefront/pkg/types"
)

type contextKey string

const ctxSession contextKey = "session"

// SessionFromContext returns the visitor session attached by Session.
func SessionFromContext(ctx context.Context) types.Session {
	if ctx == nil {
		return types.Session{}
	}
	if v, ok := ctx.Value(ctxSession).(types.Session); ok {
		return v
	}
	return types.Session{}
}

// WithSession injects the visitor session into the context.
func WithSession(ctx context.Context, session types.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, session)
}
