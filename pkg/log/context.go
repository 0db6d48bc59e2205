package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx retrieves the logger from the context, falling back to the global logger.
func Ctx(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}

// WithConnection returns a context whose logger carries the connection and,
// when known, the room the connection is bound to.
func WithConnection(ctx context.Context, connectionID, roomID string) context.Context {
	lc := Ctx(ctx).With().Str(FieldConnectionID, connectionID)
	if roomID != "" {
		lc = lc.Str(FieldRoomID, roomID)
	}
	return WithLogger(ctx, lc.Logger())
}
