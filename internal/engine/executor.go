package engine

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"mermaidlive/internal/diagram"
	"mermaidlive/internal/trace"
)

// SessionPrefix starts every session id so it is a valid element id.
const SessionPrefix = "mmd-"

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Tracer trace.Tracer
	// MaxWidth caps the displayed width in pixels; zero keeps the natural width.
	MaxWidth int
}

// Executor performs render attempts. Attempts are serialised so the engine
// configuration written for one attempt is the one its render observes.
type Executor struct {
	mu       sync.Mutex
	engine   Engine
	tracer   trace.Tracer
	maxWidth int
	newID    func() string
}

// NewExecutor wraps eng.
func NewExecutor(eng Engine, opts ExecutorOptions) *Executor {
	return &Executor{
		engine:   eng,
		tracer:   trace.OrNop(opts.Tracer),
		maxWidth: opts.MaxWidth,
		newID:    func() string { return SessionPrefix + uuid.NewString() },
	}
}

// Attempt renders text with theme and returns the fitted artifact.
func (x *Executor) Attempt(ctx context.Context, text string, theme diagram.Theme) (diagram.Artifact, error) {
	session := x.newID()
	if err := ctx.Err(); err != nil {
		return diagram.Artifact{}, &EngineError{Session: session, Op: "render", Err: err}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	span := trace.Begin(x.tracer, trace.ScopeAttempt, "engine.attempt", 0).
		WithExtra("session", session).
		WithExtra("theme", theme.String()).
		WithExtra("bytes", strconv.Itoa(len(text)))
	if gen, ok := trace.GenerationFrom(ctx); ok {
		span = span.WithExtra(trace.ExtraGeneration, strconv.FormatUint(gen, 10))
	}

	if err := x.call(session, "configure", func() error {
		return x.engine.Configure(ctx, ConfigFor(theme))
	}); err != nil {
		span.End("configure failed")
		return diagram.Artifact{}, err
	}

	var svg string
	if err := x.call(session, "render", func() error {
		var rerr error
		svg, rerr = x.engine.Render(ctx, session, text)
		return rerr
	}); err != nil {
		span.End("render failed")
		return diagram.Artifact{}, err
	}

	fitted, ok := Fit(svg, x.maxWidth)
	if !ok {
		span.End("unusable")
		return diagram.Artifact{}, &EngineError{Session: session, Op: "render", Err: ErrUnusableArtifact}
	}
	span.WithExtra("svg_bytes", strconv.Itoa(len(fitted))).End("ok")
	return diagram.Artifact{SVG: fitted}, nil
}

// call runs fn and converts both errors and panics into *EngineError.
func (x *Executor) call(session, op string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			trace.Errorf(x.tracer, trace.ScopeAttempt, "engine.panic", "%s: %v", op, r)
			err = &EngineError{Session: session, Op: op, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if ferr := fn(); ferr != nil {
		return &EngineError{Session: session, Op: op, Err: ferr}
	}
	return nil
}
