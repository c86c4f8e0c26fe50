package mmdc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"mermaidlive/internal/diagram"
	"mermaidlive/internal/engine"
)

const fakeScript = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift 2 ;;
    -o) out="$2"; shift 2 ;;
    -c) cfg="$2"; shift 2 ;;
    -I) id="$2"; shift 2 ;;
    *) shift ;;
  esac
done
if grep -q FAIL "$in"; then
  echo "Parse error on line 2" >&2
  exit 1
fi
if grep -q SLEEP "$in"; then
  exec sleep 5
fi
if grep -q EMPTY "$in"; then
  exit 0
fi
printf '<svg id="%s" width="40" height="20"><!-- %s --><g/></svg>' "$id" "$(cat "$cfg")" > "$out"
`

func fakeMmdc(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "mmdc")
	if err := os.WriteFile(path, []byte(fakeScript), 0o755); err != nil {
		t.Fatalf("write fake mmdc: %v", err)
	}
	return path
}

func newEngine(t *testing.T, timeout time.Duration) *Engine {
	t.Helper()
	eng, err := New(Options{Command: fakeMmdc(t), Timeout: timeout, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestRenderThroughExecutor(t *testing.T) {
	eng := newEngine(t, 0)
	x := engine.NewExecutor(eng, engine.ExecutorOptions{})

	art, err := x.Attempt(context.Background(), "flowchart TD\nA-->B", diagram.ThemeDark)
	if err != nil {
		t.Fatalf("Attempt: %v", err)
	}
	if !strings.Contains(art.SVG, `id="`+engine.SessionPrefix) {
		t.Fatalf("session id not passed to mmdc: %s", art.SVG)
	}
	if !strings.Contains(art.SVG, `"theme":"dark"`) {
		t.Fatalf("config not written before render: %s", art.SVG)
	}
	if !strings.Contains(art.SVG, `viewBox="0 0 40 20"`) {
		t.Fatalf("artifact not fitted: %s", art.SVG)
	}

	entries, err := os.ReadDir(eng.Dir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != "config.json" {
			t.Fatalf("scratch file left behind: %s", e.Name())
		}
	}
}

func TestRenderReportsStderr(t *testing.T) {
	eng := newEngine(t, 0)
	if err := eng.Configure(context.Background(), engine.ConfigFor(diagram.ThemeLight)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	_, err := eng.Render(context.Background(), "mmd-test", "graph TD\nFAIL")
	if err == nil || !strings.Contains(err.Error(), "Parse error on line 2") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestRenderWithoutOutputIsUnusable(t *testing.T) {
	eng := newEngine(t, 0)
	x := engine.NewExecutor(eng, engine.ExecutorOptions{})
	_, err := x.Attempt(context.Background(), "pie\nEMPTY", diagram.ThemeLight)
	if err == nil {
		t.Fatalf("expected an error when mmdc writes nothing")
	}
	var ee *engine.EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *engine.EngineError, got %T", err)
	}
}

func TestRenderTimeout(t *testing.T) {
	eng := newEngine(t, 100*time.Millisecond)
	if err := eng.Configure(context.Background(), engine.ConfigFor(diagram.ThemeLight)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	start := time.Now()
	_, err := eng.Render(context.Background(), "mmd-slow", "pie\nSLEEP")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Fatalf("timeout did not stop the process promptly")
	}
}

func TestRenderBeforeConfigure(t *testing.T) {
	eng := newEngine(t, 0)
	if _, err := eng.Render(context.Background(), "mmd-x", "pie"); err == nil {
		t.Fatalf("expected error when rendering before configure")
	}
}
