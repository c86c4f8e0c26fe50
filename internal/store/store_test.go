package store

import (
	"strings"
	"testing"

	"mermaidlive/internal/trace"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemory[string]()
	s.Set("status", "loading")
	s.Set("error", "")
	if v, ok := s.Get("status"); !ok || v != "loading" {
		t.Fatalf("Get(status) = %q, %v", v, ok)
	}
	if got := strings.Join(s.Keys(), ","); got != "error,status" {
		t.Fatalf("Keys() = %s", got)
	}
	s.Delete("error")
	if _, ok := s.Get("error"); ok {
		t.Fatalf("deleted key still present")
	}
}

func TestLoggedTracesWrites(t *testing.T) {
	ring := trace.NewRingTracer(8, trace.LevelDebug)
	s := WithLogging[string](NewMemory[string](), ring, "surface")

	s.Set("svg", strings.Repeat("x", 100))
	s.Delete("svg")
	if _, ok := s.Get("svg"); ok {
		t.Fatalf("delete not forwarded")
	}

	events := ring.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Name != "surface.set" || events[0].Detail != "svg" {
		t.Fatalf("unexpected set event %+v", events[0])
	}
	if !strings.Contains(events[0].Extra["value"], "(100 bytes)") {
		t.Fatalf("long value not summarized: %q", events[0].Extra["value"])
	}
	if events[1].Name != "surface.delete" {
		t.Fatalf("unexpected delete event %+v", events[1])
	}
}
