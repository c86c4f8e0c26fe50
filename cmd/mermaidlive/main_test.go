package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mermaidlive/internal/diagram"
	"mermaidlive/internal/diagtype"
	"mermaidlive/internal/trace"
)

func TestProgressUI(t *testing.T) {
	tests := []struct {
		value string
		quiet bool
		files int
		want  bool
	}{
		{"on", false, 1, true},
		{" ON ", false, 5, true},
		{"on", true, 5, false},
		{"off", false, 5, false},
		{"auto", false, 1, false},
		{"", true, 5, false},
	}
	for _, tt := range tests {
		got, err := progressUI(tt.value, tt.quiet, tt.files)
		if err != nil || got != tt.want {
			t.Errorf("progressUI(%q, %v, %d) = %v, %v; want %v", tt.value, tt.quiet, tt.files, got, err, tt.want)
		}
	}
	if _, err := progressUI("sometimes", false, 2); err == nil {
		t.Fatalf("expected an error for an unknown --ui value")
	}
}

func TestCollectFilesExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mmd", "a.mermaid", "notes.txt", filepath.Join("sub", "c.MMD")} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("graph TD"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	explicit := filepath.Join(dir, "notes.txt")
	files, err := collectFiles([]string{dir, explicit, filepath.Join(dir, "b.mmd")})
	if err != nil {
		t.Fatalf("collectFiles: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.mermaid"),
		filepath.Join(dir, "b.mmd"),
		filepath.Join(dir, "sub", "c.MMD"),
		explicit,
	}
	if strings.Join(files, "|") != strings.Join(want, "|") {
		t.Fatalf("collectFiles = %v, want %v", files, want)
	}

	if _, err := collectFiles([]string{filepath.Join(dir, "missing.mmd")}); err == nil {
		t.Fatalf("expected error for missing file")
	}
	empty := t.TempDir()
	if _, err := collectFiles([]string{empty}); err == nil {
		t.Fatalf("expected error for directory without diagrams")
	}
}

func TestResolveThemeExplicit(t *testing.T) {
	if got, err := resolveTheme("dark"); err != nil || got != diagram.ThemeDark {
		t.Fatalf("resolveTheme(dark) = %v, %v", got, err)
	}
	if _, err := resolveTheme("sepia"); err == nil {
		t.Fatalf("expected error for unknown theme")
	}
}

func TestCheckText(t *testing.T) {
	if kw, ok := checkText("\n%% title\nsequenceDiagram\nA->>B: hi\n"); !ok || kw != diagtype.Sequence {
		t.Fatalf("checkText sequence = %q, %v", kw, ok)
	}
	if _, ok := checkText("flow chart\nA-->B"); ok {
		t.Fatalf("expected unknown type")
	}
}

func TestRunRepairPrintsFixedText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.mmd")
	if err := os.WriteFile(path, []byte("flowchart TD\nA-- >B"), 0o644); err != nil {
		t.Fatal(err)
	}
	var out, errOut bytes.Buffer
	repairCmd.SetOut(&out)
	repairCmd.SetErr(&errOut)
	defer func() {
		repairCmd.SetOut(nil)
		repairCmd.SetErr(nil)
	}()

	if err := runRepair(repairCmd, []string{path}); err != nil {
		t.Fatalf("runRepair: %v", err)
	}
	if out.String() != "flowchart TD\nA-->B" {
		t.Fatalf("repaired text = %q", out.String())
	}
	if !strings.Contains(errOut.String(), "arrow-head-gap") {
		t.Fatalf("applied rules not reported: %q", errOut.String())
	}
}

func TestStripANSI(t *testing.T) {
	if got := stripANSI("\x1b[33;1m0\x1b[0m.3.0-dev"); got != "0.3.0-dev" {
		t.Fatalf("stripANSI = %q", got)
	}
}

func TestDumpRingKeepsRequestedGeneration(t *testing.T) {
	ring := trace.NewRingTracer(16, trace.LevelPhase)
	for _, gen := range []uint64{1, 2, 3} {
		trace.Point(ring, trace.ScopeGeneration, "commit", "success", trace.GenerationExtra(gen))
	}
	path := filepath.Join(t.TempDir(), "live.ndjson")

	if err := dumpRing(ring, path, 2); err != nil {
		t.Fatalf("dumpRing: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"gen":"2"`) {
		t.Fatalf("unexpected dump: %q", data)
	}

	if err := dumpRing(ring, path, 0); err != nil {
		t.Fatalf("dumpRing: %v", err)
	}
	data, _ = os.ReadFile(path)
	if n := strings.Count(string(data), "\n"); n != 3 {
		t.Fatalf("expected the whole ring, got %d lines", n)
	}
}
