package pipeline

// Phase is the controller state of the current generation.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseDebouncing
	PhaseValidating
	PhaseRenderingOriginal
	PhaseRenderingRepaired
	PhaseCommitted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDebouncing:
		return "debouncing"
	case PhaseValidating:
		return "validating"
	case PhaseRenderingOriginal:
		return "rendering-original"
	case PhaseRenderingRepaired:
		return "rendering-repaired"
	case PhaseCommitted:
		return "committed"
	}
	return "unknown"
}

// Busy reports whether work is scheduled or running.
func (p Phase) Busy() bool {
	return p != PhaseIdle && p != PhaseCommitted
}
