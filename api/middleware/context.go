package middleware

import (
	"context"

	"github.com/angelmondragon/civicpulse-backend/internal/policy"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (policy.Actor, bool) {
	if ctx == nil {
		return nil, false
	}
	actor, ok := ctx.Value(ctxActor).(policy.Actor)
	return actor, ok && actor != nil
}

// WithActor injects the authenticated actor into the context.
func WithActor(ctx context.Context, actor policy.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}
