package trace

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
)

func TestRingTracerKeepsLastEventsInOrder(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		Point(ring, ScopeGeneration, name, "", nil)
	}

	events := ring.Snapshot()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	got := []string{events[0].Name, events[1].Name, events[2].Name}
	if strings.Join(got, ",") != "c,d,e" {
		t.Fatalf("unexpected ring order: %v", got)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Fatalf("sequence not increasing: %d then %d", events[i-1].Seq, events[i].Seq)
		}
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	ring := NewRingTracer(16, LevelPhase)
	Point(ring, ScopeSession, "session", "", nil)
	Point(ring, ScopeGeneration, "generation", "", nil)
	Point(ring, ScopeAttempt, "attempt", "", nil)
	Point(ring, ScopeDetail, "detail", "", nil)

	events := ring.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected session+generation only, got %d events", len(events))
	}
	if events[0].Name != "session" || events[1].Name != "generation" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestErrorEventsBypassScopeFilter(t *testing.T) {
	ring := NewRingTracer(4, LevelError)
	Point(ring, ScopeSession, "ignored", "", nil)
	Errorf(ring, ScopeDetail, "clipboard", "write failed: %s", "boom")

	events := ring.Snapshot()
	if len(events) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(events))
	}
	if events[0].Kind != KindError || events[0].Detail != "write failed: boom" {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestSpanEmitsBeginAndEndWithExtra(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)

	span := Begin(tr, ScopeAttempt, "render", 0)
	span.WithExtra("session", "abc").End("ok")

	out := buf.String()
	if !strings.Contains(out, "→ render") {
		t.Fatalf("missing begin line: %q", out)
	}
	if !strings.Contains(out, "← render (ok) {session=abc}") {
		t.Fatalf("missing end line: %q", out)
	}
}

func TestNDJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(tr, ScopeGeneration, "commit", "success", map[string]string{"gen": "7"})

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{`"kind":"point"`, `"scope":"generation"`, `"name":"commit"`, `"gen":"7"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %s", want, line)
		}
	}
}

func TestNopSpanIsSafe(t *testing.T) {
	span := Begin(Nop, ScopeAttempt, "render", 0)
	if d := span.WithExtra("k", "v").End(""); d != 0 {
		t.Fatalf("nop span should report zero duration, got %v", d)
	}
	if span.ID() != 0 {
		t.Fatalf("nop span should have zero id")
	}
}

func TestMultiTracerFansOut(t *testing.T) {
	a := NewRingTracer(4, LevelDebug)
	b := NewRingTracer(4, LevelDebug)
	m := NewMultiTracer(LevelDebug, a, b)
	Point(m, ScopeSession, "start", "", nil)

	if len(a.Snapshot()) != 1 || len(b.Snapshot()) != 1 {
		t.Fatalf("expected both tracers to receive the event")
	}
	if m.Ring() != a {
		t.Fatalf("expected first ring tracer to be returned")
	}
}

func TestParseLevelAndMode(t *testing.T) {
	if lvl, err := ParseLevel("DETAIL"); err != nil || lvl != LevelDetail {
		t.Fatalf("ParseLevel(DETAIL) = %v, %v", lvl, err)
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if mode, err := ParseMode("both"); err != nil || mode != ModeBoth {
		t.Fatalf("ParseMode(both) = %v, %v", mode, err)
	}
}

func TestRingFiltersByGeneration(t *testing.T) {
	ring := NewRingTracer(4, LevelDebug)
	for _, gen := range []uint64{1, 2, 2, 3, 2} {
		Point(ring, ScopeGeneration, "commit", "", GenerationExtra(gen))
	}
	Point(ring, ScopeGeneration, "phase", "", GenerationExtra(2))

	// Kept: commit 2, commit 3, commit 2, phase 2.
	if got := len(ring.Generation(2)); got != 3 {
		t.Fatalf("expected 3 events for generation 2, got %d", got)
	}
	if got := ring.Count("commit", 2); got != 2 {
		t.Fatalf("expected 2 commits for generation 2, got %d", got)
	}
	if got := ring.Count("commit", 1); got != 0 {
		t.Fatalf("generation 1 was overwritten, counted %d", got)
	}

	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatNDJSON, ForGeneration(3)); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"gen":"3"`) {
		t.Fatalf("unexpected filtered dump: %q", buf.String())
	}
}

func TestInteractiveSessionsKeepTerminalEventsInRing(t *testing.T) {
	tests := []struct {
		cfg  Config
		want StorageMode
	}{
		{Config{Mode: ModeStream}, ModeStream},
		{Config{Mode: ModeStream, Interactive: true}, ModeRing},
		{Config{Mode: ModeBoth, OutputPath: "-", Interactive: true}, ModeRing},
		{Config{Mode: ModeStream, Output: os.Stderr, Interactive: true}, ModeRing},
		{Config{Mode: ModeStream, OutputPath: "live.ndjson", Interactive: true}, ModeBoth},
		{Config{Mode: ModeRing, OutputPath: "live.log", Interactive: true}, ModeRing},
	}
	for _, tt := range tests {
		if got := tt.cfg.EffectiveMode(); got != tt.want {
			t.Errorf("EffectiveMode(%+v) = %v, want %v", tt.cfg, got, tt.want)
		}
	}

	tr, err := New(Config{Level: LevelPhase, Mode: ModeStream, Interactive: true})
	if err != nil {
		t.Fatal(err)
	}
	if RingOf(tr) == nil {
		t.Fatalf("interactive tracer without a file should be a ring, got %T", tr)
	}
}

func TestFormatForPath(t *testing.T) {
	if FormatForPath("trace.ndjson") != FormatNDJSON {
		t.Fatalf("expected ndjson for .ndjson files")
	}
	for _, path := range []string{"", "-", "trace.log"} {
		if FormatForPath(path) != FormatText {
			t.Fatalf("expected text for %q", path)
		}
	}
}

func TestGenerationTravelsWithContext(t *testing.T) {
	if _, ok := GenerationFrom(context.Background()); ok {
		t.Fatalf("a bare context has no generation")
	}
	ring := NewRingTracer(4, LevelDebug)
	ctx := WithGeneration(WithTracer(context.Background(), ring), 42)
	gen, ok := GenerationFrom(ctx)
	if !ok || gen != 42 {
		t.Fatalf("GenerationFrom = %d, %v", gen, ok)
	}
	if FromContext(ctx) != Tracer(ring) {
		t.Fatalf("tracer lost when the generation was attached")
	}
	if FromContext(context.Background()) != Nop {
		t.Fatalf("expected Nop without an attached tracer")
	}
}
