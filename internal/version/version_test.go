package version

import (
	"strings"
	"testing"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestString_OptionalFields(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() {
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	}()

	tests := []struct {
		name   string
		commit string
		date   string
		want   string
	}{
		{name: "bare", want: "mermaidlive 1.2.3"},
		{name: "commit", commit: "1234567890abcdef", want: "mermaidlive 1.2.3 (commit 1234567890ab)"},
		{name: "date", date: "2026-01-15", want: "mermaidlive 1.2.3 (built 2026-01-15)"},
		{name: "both", commit: "abc123", date: "2026-01-15T10:30:00Z", want: "mermaidlive 1.2.3 (commit abc123, built 2026-01-15T10:30:00Z)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Version = "1.2.3"
			GitCommit = tt.commit
			BuildDate = tt.date
			if got := String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestString_StartsWithBinaryName(t *testing.T) {
	if !strings.HasPrefix(String(), "mermaidlive ") {
		t.Fatalf("unexpected version line %q", String())
	}
}
