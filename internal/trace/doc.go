// Package trace provides the tracing and logging subsystem for mermaidlive.
//
// The trace package records render sessions, generations, and individual
// engine attempts so that debounce, cancellation, and auto-correction
// behaviour can be inspected after the fact.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	mermaidlive render --trace=- --trace-level=detail diagram.mmd
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - Nop: zero-overhead no-op tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer, dumped on exit by the live editor and
//     filterable by generation
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
// Tracing verbosity is controlled by levels:
//
//   - LevelOff: no tracing
//   - LevelError: error events only
//   - LevelPhase: session and generation boundaries
//   - LevelDetail: engine attempts
//   - LevelDebug: everything, including store writes
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeSession: a CLI command or live editor session
//   - ScopeGeneration: one logical (text, theme) input
//   - ScopeAttempt: one engine render call
//   - ScopeDetail: fine-grained bookkeeping
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx = trace.WithGeneration(ctx, gen)
//	t := trace.FromContext(ctx)
//
// Events carrying the "gen" extra can be pulled back out of a ring with
// RingTracer.Generation, or dumped selectively with --trace-gen.
//
//	span := trace.Begin(t, trace.ScopeAttempt, "render", parentID)
//	defer span.End("")
package trace
