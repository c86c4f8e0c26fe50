package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mermaidlive/internal/diagram"
	"mermaidlive/internal/engine"
)

const (
	brokenArrow = "flowchart TD\nA-- >B"
	fixedArrow  = "flowchart TD\nA-->B"
)

var errParse = errors.New("Parse error on line 2")

func TestRunOutcomes(t *testing.T) {
	unusable := &engine.EngineError{Session: "s", Op: "render", Err: engine.ErrUnusableArtifact}

	tests := []struct {
		name      string
		text      string
		fail      map[string]error
		wantCalls []string
		check     func(t *testing.T, o diagram.Outcome)
	}{
		{
			name:      "empty input",
			text:      "  \n\t",
			wantCalls: nil,
			check: func(t *testing.T, o diagram.Outcome) {
				if o.Status != diagram.StatusFailure || o.Reason != diagram.EmptyInput {
					t.Fatalf("expected EmptyInput, got %+v", o)
				}
			},
		},
		{
			name:      "invalid type",
			text:      "flow chart",
			wantCalls: nil,
			check: func(t *testing.T, o diagram.Outcome) {
				if o.Reason != diagram.InvalidType || o.HasRepair {
					t.Fatalf("expected InvalidType without repair, got %+v", o)
				}
			},
		},
		{
			name:      "invalid type keeps repair candidate",
			text:      "flow chart\nA-- >B",
			wantCalls: nil,
			check: func(t *testing.T, o diagram.Outcome) {
				if o.Reason != diagram.InvalidType || !o.HasRepair || o.TriedRepair {
					t.Fatalf("expected untried repair candidate, got %+v", o)
				}
				if o.RepairedText != "flow chart\nA-->B" {
					t.Fatalf("unexpected repaired text %q", o.RepairedText)
				}
			},
		},
		{
			name:      "original succeeds",
			text:      "  " + fixedArrow + "\n",
			wantCalls: []string{fixedArrow},
			check: func(t *testing.T, o diagram.Outcome) {
				if o.Status != diagram.StatusSuccess || o.AutoCorrected || o.EffectiveText != fixedArrow {
					t.Fatalf("unexpected outcome %+v", o)
				}
				if o.Keyword != "flowchart" {
					t.Fatalf("unexpected keyword %q", o.Keyword)
				}
				if _, ok := o.Timing.Lookup("render-original"); !ok {
					t.Fatalf("missing render timing: %+v", o.Timing)
				}
			},
		},
		{
			name:      "repaired succeeds",
			text:      brokenArrow,
			fail:      map[string]error{brokenArrow: errParse},
			wantCalls: []string{brokenArrow, fixedArrow},
			check: func(t *testing.T, o diagram.Outcome) {
				if o.Status != diagram.StatusSuccess || !o.AutoCorrected || o.EffectiveText != fixedArrow {
					t.Fatalf("unexpected outcome %+v", o)
				}
				if strings.Join(o.RepairRules, ",") != "arrow-head-gap" {
					t.Fatalf("unexpected repair rules %v", o.RepairRules)
				}
			},
		},
		{
			name:      "repaired fails",
			text:      brokenArrow,
			fail:      map[string]error{brokenArrow: errParse, fixedArrow: errors.New("still broken")},
			wantCalls: []string{brokenArrow, fixedArrow},
			check: func(t *testing.T, o diagram.Outcome) {
				if o.Reason != diagram.RepairAttemptFailed || !o.TriedRepair || !o.HasRepair || o.RepairedText != fixedArrow {
					t.Fatalf("unexpected outcome %+v", o)
				}
				if o.EngineMessage != "still broken" {
					t.Fatalf("unexpected engine message %q", o.EngineMessage)
				}
			},
		},
		{
			name:      "nothing to repair",
			text:      fixedArrow,
			fail:      map[string]error{fixedArrow: errParse},
			wantCalls: []string{fixedArrow},
			check: func(t *testing.T, o diagram.Outcome) {
				if o.Reason != diagram.UnrepairableSyntax || o.TriedRepair || o.HasRepair {
					t.Fatalf("unexpected outcome %+v", o)
				}
				if o.EngineMessage != errParse.Error() {
					t.Fatalf("unexpected engine message %q", o.EngineMessage)
				}
			},
		},
		{
			name:      "unusable artifact",
			text:      brokenArrow,
			fail:      map[string]error{brokenArrow: unusable},
			wantCalls: []string{brokenArrow},
			check: func(t *testing.T, o diagram.Outcome) {
				if o.Reason != diagram.EngineUnexpected || o.TriedRepair {
					t.Fatalf("unexpected outcome %+v", o)
				}
			},
		},
		{
			name:      "unusable repaired artifact",
			text:      brokenArrow,
			fail:      map[string]error{brokenArrow: errParse, fixedArrow: unusable},
			wantCalls: []string{brokenArrow, fixedArrow},
			check: func(t *testing.T, o diagram.Outcome) {
				if o.Reason != diagram.EngineUnexpected || !o.TriedRepair || o.RepairedText != fixedArrow {
					t.Fatalf("unexpected outcome %+v", o)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			att := &scriptedAttempter{fail: tt.fail}
			o, ok := Run(context.Background(), att, nil, diagram.Input{Text: tt.text}, Always)
			if !ok {
				t.Fatalf("run was abandoned")
			}
			if got := att.Calls(); strings.Join(got, "|") != strings.Join(tt.wantCalls, "|") {
				t.Fatalf("attempts = %q, want %q", got, tt.wantCalls)
			}
			tt.check(t, o)
		})
	}
}

func TestRunStepVetoStopsBeforeAttempt(t *testing.T) {
	att := &scriptedAttempter{}
	var phases []Phase
	step := func(p Phase) bool {
		phases = append(phases, p)
		return p != PhaseRenderingOriginal
	}
	if _, ok := Run(context.Background(), att, nil, diagram.Input{Text: fixedArrow}, step); ok {
		t.Fatalf("expected run to be abandoned")
	}
	if len(att.Calls()) != 0 {
		t.Fatalf("attempt made after veto: %v", att.Calls())
	}
	if len(phases) != 2 || phases[0] != PhaseValidating {
		t.Fatalf("unexpected phases %v", phases)
	}
}

func TestRunVisitsPhasesInOrder(t *testing.T) {
	att := &scriptedAttempter{fail: map[string]error{brokenArrow: errParse}}
	var phases []string
	step := func(p Phase) bool {
		phases = append(phases, p.String())
		return true
	}
	Run(context.Background(), att, nil, diagram.Input{Text: brokenArrow}, step)
	want := "validating,rendering-original,rendering-repaired"
	if strings.Join(phases, ",") != want {
		t.Fatalf("phases = %v, want %s", phases, want)
	}
}

func TestRunCancelledAfterFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	att := &scriptedAttempter{}
	if _, ok := Run(ctx, att, nil, diagram.Input{Text: brokenArrow}, Always); ok {
		t.Fatalf("cancelled run must not produce an outcome")
	}
	if len(att.Calls()) != 1 {
		t.Fatalf("expected only the original attempt, got %v", att.Calls())
	}
}

func TestRunUsesCache(t *testing.T) {
	cache := newMapCache()
	in := diagram.Input{Text: fixedArrow, Theme: diagram.ThemeDark}
	cache.Put(in.Identity(), diagram.Succeeded(diagram.Artifact{SVG: "<svg>cached</svg>"}, false, fixedArrow))

	att := &scriptedAttempter{}
	o, ok := Run(context.Background(), att, cache, in, Always)
	if !ok || o.Artifact.SVG != "<svg>cached</svg>" {
		t.Fatalf("expected cached outcome, got %+v ok=%v", o, ok)
	}
	if len(att.Calls()) != 0 {
		t.Fatalf("cache hit must not attempt: %v", att.Calls())
	}
	if _, ok := o.Timing.Lookup("cache"); !ok {
		t.Fatalf("missing cache timing")
	}

	other := diagram.Input{Text: fixedArrow, Theme: diagram.ThemeLight}
	if _, ok := Run(context.Background(), att, cache, other, Always); !ok || len(att.Calls()) != 1 {
		t.Fatalf("theme change must miss the cache")
	}
}

func TestRememberSkipsFailures(t *testing.T) {
	cache := newMapCache()
	in := diagram.Input{Text: fixedArrow}
	Remember(cache, in, diagram.Failed(diagram.UnrepairableSyntax))
	Remember(nil, in, diagram.Succeeded(diagram.Artifact{SVG: "<svg/>"}, false, fixedArrow))
	if cache.puts != 0 {
		t.Fatalf("failure was cached")
	}
	Remember(cache, in, diagram.Succeeded(diagram.Artifact{SVG: "<svg/>"}, false, fixedArrow))
	if cache.puts != 1 {
		t.Fatalf("success was not cached")
	}
}
