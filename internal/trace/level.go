package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	// LevelOff disables tracing.
	LevelOff    Level = iota // no tracing
	LevelError               // only error events
	LevelPhase               // session + generation boundaries
	LevelDetail              // engine attempts
	LevelDebug               // everything
)

// String returns the string representation of Level.
func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelPhase:
		return "phase"
	case LevelDetail:
		return "detail"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "phase":
		return LevelPhase, nil
	case "detail":
		return LevelDetail, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
	}
}

// ShouldEmit returns true if the given scope should emit at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelOff:
		return false
	case LevelError:
		return false // error events bypass scope filtering, see accepts
	case LevelPhase:
		return scope <= ScopeGeneration
	case LevelDetail:
		return scope <= ScopeAttempt
	case LevelDebug:
		return true
	}
	return false
}

// accepts reports whether a tracer configured at l keeps ev.
func (l Level) accepts(ev *Event) bool {
	if ev == nil || l == LevelOff {
		return false
	}
	switch ev.Kind {
	case KindError, KindHeartbeat:
		return true
	}
	return l.ShouldEmit(ev.Scope)
}
