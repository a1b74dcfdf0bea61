package tenant

import (
	"context"
)

// Space captures the resolved routing metadata for one school. It is attached
// to the context once the school has been resolved from the request, so
// downstream layers never re-derive database names.
type Space struct {
	Code         string // normalized school code
	DisplayCode  string // code as registered, used for external IDs
	DatabaseName string
}

type ctxKey struct{}

// WithSpace returns a derived context carrying the school Space.
func WithSpace(ctx context.Context, space Space) context.Context {
	return context.WithValue(ctx, ctxKey{}, space)
}

// FromContext extracts the school Space and a boolean indicating presence.
func FromContext(ctx context.Context) (Space, bool) {
	space, ok := ctx.Value(ctxKey{}).(Space)
	return space, ok
}
