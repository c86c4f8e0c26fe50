// Package view is the presentation surface over a render controller: it
// turns controller snapshots into displayable state, publishes that state
// to a key/value store, and exposes the copy and retry actions.
package view

import (
	"context"
	"errors"
	"fmt"

	"mermaidlive/internal/clipboard"
	"mermaidlive/internal/diagram"
	"mermaidlive/internal/diagtype"
	"mermaidlive/internal/pipeline"
	"mermaidlive/internal/store"
	"mermaidlive/internal/trace"
)

var (
	// ErrNoRemedy means there is no repaired text worth copying.
	ErrNoRemedy = errors.New("no repaired text available")
	// ErrNothingToCopy means the current input is empty.
	ErrNothingToCopy = errors.New("no diagram text to copy")
)

// Store keys written by Publish.
const (
	KeyStatus        = "status"
	KeySVG           = "svg"
	KeyError         = "error"
	KeyEffectiveText = "effective_text"
)

// Source is the controller side of the surface.
type Source interface {
	Snapshot() pipeline.Snapshot
	Retry() diagram.Generation
}

// Status is the display status.
type Status uint8

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// Action is a user action offered by the surface.
type Action uint8

const (
	ActionCopyOriginal Action = iota
	ActionCopyRepaired
	ActionRetry
)

func (a Action) String() string {
	switch a {
	case ActionCopyOriginal:
		return "copy-original"
	case ActionCopyRepaired:
		return "copy-repaired"
	case ActionRetry:
		return "retry"
	}
	return "unknown"
}

// State is what the surface shows for one snapshot.
type State struct {
	Generation    diagram.Generation
	Phase         pipeline.Phase
	Status        Status
	Headline      string
	Message       string
	Artifact      diagram.Artifact
	AutoCorrected bool
	RepairRules   []string
	EffectiveText string
	Reason        diagram.ErrorKind
	Actions       []Action
}

// Can reports whether a is offered.
func (s State) Can(a Action) bool {
	for _, x := range s.Actions {
		if x == a {
			return true
		}
	}
	return false
}

// Render derives the surface state from a snapshot.
func Render(snap pipeline.Snapshot) State {
	st := State{Generation: snap.Generation, Phase: snap.Phase}
	o := snap.Outcome
	hasText := snap.Input.Trimmed() != ""

	switch {
	case snap.Generation == 0:
		st.Status = StatusIdle
		st.Headline = "Waiting for input"
	case snap.Phase.Busy() || o.Status == diagram.StatusPending:
		st.Status = StatusLoading
		st.Headline = "Rendering…"
	case o.Status == diagram.StatusSuccess:
		st.Status = StatusSuccess
		st.Artifact = o.Artifact
		st.AutoCorrected = o.AutoCorrected
		st.RepairRules = o.RepairRules
		st.EffectiveText = o.EffectiveText
		st.Headline = "Rendered"
		if o.AutoCorrected {
			st.Headline = "Rendered with automatic fixes"
		}
	default:
		st.Status = StatusError
		st.Reason = o.Reason
		st.Headline = headline(o.Reason)
		st.Message = o.Message()
		if o.Reason == diagram.InvalidType {
			st.Message += "\nSupported types: " + diagtype.List()
		}
	}

	if hasText {
		st.Actions = append(st.Actions, ActionCopyOriginal)
	}
	if hasRemedy(snap) {
		st.Actions = append(st.Actions, ActionCopyRepaired)
	}
	if hasText && !snap.Phase.Busy() {
		st.Actions = append(st.Actions, ActionRetry)
	}
	return st
}

func headline(kind diagram.ErrorKind) string {
	switch kind {
	case diagram.EmptyInput:
		return "Nothing to render"
	case diagram.InvalidType:
		return "Unknown diagram type"
	case diagram.UnrepairableSyntax:
		return "Syntax error"
	case diagram.RepairAttemptFailed:
		return "Syntax error, automatic fix failed"
	case diagram.EngineUnexpected:
		return "Renderer error"
	}
	return "Render failed"
}

func hasRemedy(snap pipeline.Snapshot) bool {
	o := snap.Outcome
	return o.Status == diagram.StatusFailure && o.HasRepair && o.RepairedText != snap.Input.Trimmed()
}

// Surface binds a controller to a clipboard and an output store.
type Surface struct {
	src    Source
	clip   clipboard.Clipboard
	out    store.Store[string]
	tracer trace.Tracer
}

// New creates a surface. out may be nil when nothing consumes published
// state.
func New(src Source, clip clipboard.Clipboard, out store.Store[string], tracer trace.Tracer) *Surface {
	if clip == nil {
		clip = clipboard.Off{}
	}
	return &Surface{src: src, clip: clip, out: out, tracer: trace.OrNop(tracer)}
}

// View returns the state for the controller's current snapshot.
func (s *Surface) View() State {
	return Render(s.src.Snapshot())
}

// CopyOriginal copies the current input text.
func (s *Surface) CopyOriginal(ctx context.Context) error {
	snap := s.src.Snapshot()
	if snap.Input.Trimmed() == "" {
		return ErrNothingToCopy
	}
	return s.copy(ctx, "copy-original", snap.Input.Text)
}

// CopyRepaired copies the repaired text of a failed render.
func (s *Surface) CopyRepaired(ctx context.Context) error {
	snap := s.src.Snapshot()
	if !hasRemedy(snap) {
		return ErrNoRemedy
	}
	return s.copy(ctx, "copy-repaired", snap.Outcome.RepairedText)
}

func (s *Surface) copy(ctx context.Context, action, text string) error {
	if err := s.clip.Write(ctx, text); err != nil {
		trace.Errorf(s.tracer, trace.ScopeSession, "clipboard", "%s: %v", action, err)
		return fmt.Errorf("%s: %w", action, err)
	}
	trace.Point(s.tracer, trace.ScopeSession, "clipboard", action, nil)
	return nil
}

// Retry starts a fresh generation for the current input.
func (s *Surface) Retry() diagram.Generation {
	return s.src.Retry()
}

// Publish writes the state for snap to the output store.
func (s *Surface) Publish(snap pipeline.Snapshot) State {
	st := Render(snap)
	if s.out == nil {
		return st
	}
	s.out.Set(KeyStatus, st.Status.String())
	switch st.Status {
	case StatusSuccess:
		s.out.Set(KeySVG, st.Artifact.SVG)
		s.out.Set(KeyEffectiveText, st.EffectiveText)
		s.out.Delete(KeyError)
	case StatusError:
		s.out.Set(KeyError, st.Message)
		s.out.Delete(KeySVG)
		s.out.Delete(KeyEffectiveText)
	default:
		s.out.Delete(KeySVG)
		s.out.Delete(KeyError)
		s.out.Delete(KeyEffectiveText)
	}
	return st
}
