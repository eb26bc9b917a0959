package trace

import "context"

type (
	tracerKey struct{}
	spanKey   struct{}
)

func value[T any](ctx context.Context, key any) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key).(T)
	return v, ok
}

// FromContext returns the tracer stored in ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if t, ok := value[Tracer](ctx, tracerKey{}); ok {
		return t
	}
	return Nop
}

// WithTracer stores t in ctx; nil stores Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// SpanContext identifies the span new spans should hang under.
type SpanContext struct {
	SpanID uint64
	GID    uint64
}

// CurrentSpan returns the span stored in ctx; the zero value means root.
func CurrentSpan(ctx context.Context) SpanContext {
	sc, _ := value[SpanContext](ctx, spanKey{})
	return sc
}

func WithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	if ctx == nil {
		return nil
	}
	return context.WithValue(ctx, spanKey{}, sc)
}
