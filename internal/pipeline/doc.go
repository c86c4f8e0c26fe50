// Package pipeline sequences validation, rendering and repair for diagram
// inputs and owns the asynchronous lifecycle around them.
//
// Run performs one validate, render, repair, render-again sequence. The
// Controller wraps Run with debouncing and generation tokens: every Submit
// mints a new generation, cancels the previous one, and every observable
// mutation re-checks that its generation is still current, so at most one
// outcome is ever committed per generation and stale results are dropped.
package pipeline
