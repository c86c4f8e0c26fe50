package trace

import (
	"context"
	"strconv"
)

// ExtraGeneration is the Extra key carrying the generation an event
// belongs to.
const ExtraGeneration = "gen"

type (
	tracerKey     struct{}
	generationKey struct{}
)

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	return context.WithValue(ctx, tracerKey{}, OrNop(t))
}

// WithGeneration marks ctx as doing the work of generation gen, so spans
// opened further down (engine attempts, cache lookups) can be tied back to
// the edit that caused them.
func WithGeneration(ctx context.Context, gen uint64) context.Context {
	return context.WithValue(ctx, generationKey{}, gen)
}

// GenerationFrom returns the generation set by WithGeneration.
func GenerationFrom(ctx context.Context) (uint64, bool) {
	if ctx == nil {
		return 0, false
	}
	gen, ok := ctx.Value(generationKey{}).(uint64)
	return gen, ok
}

// GenerationExtra is the Extra map for a generation-scoped point.
func GenerationExtra(gen uint64) map[string]string {
	return map[string]string{ExtraGeneration: strconv.FormatUint(gen, 10)}
}
