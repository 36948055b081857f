package trace

import "context"

// ctxKey is the key type for storing a Buffer in context.
type ctxKey struct{}

// FromContext extracts the Buffer from context. A missing buffer yields nil,
// which disables instrumentation.
func FromContext(ctx context.Context) *Buffer {
	if ctx == nil {
		return nil
	}
	if b, ok := ctx.Value(ctxKey{}).(*Buffer); ok {
		return b
	}
	return nil
}

// WithBuffer attaches a Buffer to context.
func WithBuffer(ctx context.Context, b *Buffer) context.Context {
	return context.WithValue(ctx, ctxKey{}, b)
}
