package batch

import (
	"time"

	"mermaidlive/internal/diagram"
)

// Stage describes a step of rendering one file.
type Stage string

const (
	// StageRead loads the diagram file.
	StageRead Stage = "read"
	// StageValidate checks the diagram type.
	StageValidate Stage = "validate"
	// StageRender renders the original text.
	StageRender Stage = "render"
	// StageRepair renders the repaired text.
	StageRepair Stage = "repair"
	// StageWrite writes the SVG.
	StageWrite Stage = "write"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the file is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the file is being processed.
	StatusWorking Status = "working"
	// StatusDone indicates the file rendered.
	StatusDone Status = "done"
	// StatusError indicates the file did not render.
	StatusError Status = "error"
)

// Event reports progress for a file.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// Result is the outcome for one file.
type Result struct {
	File    string
	Out     string
	Outcome diagram.Outcome
	// Err is an I/O error; render failures live in Outcome.
	Err error
}

// OK reports whether the file rendered and was written.
func (r Result) OK() bool {
	return r.Err == nil && r.Outcome.Status == diagram.StatusSuccess
}

// Summary counts results by kind.
type Summary struct {
	Rendered  int
	Corrected int
	Failed    int
}

// Summarize counts results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch {
		case !r.OK():
			s.Failed++
		case r.Outcome.AutoCorrected:
			s.Corrected++
			s.Rendered++
		default:
			s.Rendered++
		}
	}
	return s
}
