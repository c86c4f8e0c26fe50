package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	v := tm.Begin("validate")
	tm.End(v, "flowchart")
	r := tm.Begin("render-original")
	tm.End(r, "engine error")
	tm.End(99, "ignored")

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(report.Phases))
	}
	phase, ok := report.Lookup("render-original")
	if !ok || phase.Note != "engine error" {
		t.Fatalf("unexpected lookup result: %+v ok=%v", phase, ok)
	}
	if _, ok := report.Lookup("repair"); ok {
		t.Fatalf("unexpected phase found")
	}
	summary := report.Summary()
	if !strings.Contains(summary, "validate") || !strings.Contains(summary, "total") {
		t.Fatalf("summary missing rows: %q", summary)
	}
}

func TestNilTimerReportIsEmpty(t *testing.T) {
	var tm *Timer
	if got := tm.Report(); len(got.Phases) != 0 || got.TotalMS != 0 {
		t.Fatalf("expected empty report, got %+v", got)
	}
}
