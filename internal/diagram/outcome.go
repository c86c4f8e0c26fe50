package diagram

import (
	"fmt"

	"mermaidlive/internal/observ"
)

// Generation identifies one unit of pipeline work. Generations are minted
// in increasing order by the controller that owns them.
type Generation uint64

// Artifact is scalable vector markup ready for display.
type Artifact struct {
	SVG string
}

// ErrorKind categorizes why a render was rejected.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	EmptyInput
	InvalidType
	UnrepairableSyntax
	RepairAttemptFailed
	EngineUnexpected
)

var kindInfo = map[ErrorKind]struct{ code, message string }{
	KindNone:            {"none", ""},
	EmptyInput:          {"empty-input", "Nothing to render: the diagram text is empty."},
	InvalidType:         {"invalid-type", "The text does not start with a recognized diagram type."},
	UnrepairableSyntax:  {"unrepairable-syntax", "The diagram has a syntax error that could not be fixed automatically."},
	RepairAttemptFailed: {"repair-attempt-failed", "The diagram has a syntax error. An automatic fix was tried but it did not render either."},
	EngineUnexpected:    {"engine-unexpected", "The diagram engine reported success but produced no usable image."},
}

// Code returns the stable machine-readable name of the kind.
func (k ErrorKind) Code() string {
	if info, ok := kindInfo[k]; ok {
		return info.code
	}
	return fmt.Sprintf("kind-%d", uint8(k))
}

// Message returns the user-facing explanation of the kind.
func (k ErrorKind) Message() string {
	return kindInfo[k].message
}

func (k ErrorKind) String() string { return k.Code() }

// Status is the variant tag of an Outcome.
type Status uint8

const (
	StatusPending Status = iota
	StatusSuccess
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	}
	return "unknown"
}

// Outcome is the result committed for a generation. Only the fields of the
// active variant are meaningful.
type Outcome struct {
	Status Status

	// success
	Artifact      Artifact
	AutoCorrected bool
	EffectiveText string
	RepairRules   []string

	// failure
	Reason        ErrorKind
	TriedRepair   bool
	RepairedText  string
	HasRepair     bool
	EngineMessage string

	Keyword string
	Timing  observ.Report
}

// Pending is the outcome of a generation that has not committed yet.
func Pending() Outcome { return Outcome{Status: StatusPending} }

// Succeeded builds a success outcome.
func Succeeded(art Artifact, autoCorrected bool, effective string) Outcome {
	return Outcome{
		Status:        StatusSuccess,
		Artifact:      art,
		AutoCorrected: autoCorrected,
		EffectiveText: effective,
	}
}

// Failed builds a failure outcome without a repair candidate.
func Failed(reason ErrorKind) Outcome {
	return Outcome{Status: StatusFailure, Reason: reason}
}

// WithRepair records a repaired text that differs from the original.
func (o Outcome) WithRepair(repaired string, tried bool) Outcome {
	o.RepairedText = repaired
	o.HasRepair = true
	o.TriedRepair = tried
	return o
}

// Message returns the user-facing text for a failure, including the engine
// detail when one was captured.
func (o Outcome) Message() string {
	if o.Status != StatusFailure {
		return ""
	}
	msg := o.Reason.Message()
	if o.EngineMessage != "" {
		msg += "\n" + o.EngineMessage
	}
	return msg
}
