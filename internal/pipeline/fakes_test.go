package pipeline

import (
	"context"
	"sync"

	"mermaidlive/internal/diagram"
)

// scriptedAttempter fails for texts listed in fail and succeeds otherwise.
type scriptedAttempter struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
	// block, when set, holds attempts for the given text until released.
	block   map[string]chan struct{}
	started chan string
}

func (a *scriptedAttempter) Attempt(ctx context.Context, text string, _ diagram.Theme) (diagram.Artifact, error) {
	a.mu.Lock()
	a.calls = append(a.calls, text)
	release := a.block[text]
	err := a.fail[text]
	started := a.started
	a.mu.Unlock()

	if started != nil {
		started <- text
	}
	if release != nil {
		<-release
	}
	if ctxErr := ctx.Err(); ctxErr != nil && release == nil {
		return diagram.Artifact{}, ctxErr
	}
	if err != nil {
		return diagram.Artifact{}, err
	}
	return diagram.Artifact{SVG: "<svg>" + text + "</svg>"}, nil
}

func (a *scriptedAttempter) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.calls))
	copy(out, a.calls)
	return out
}

type mapCache struct {
	mu      sync.Mutex
	entries map[diagram.Identity]diagram.Outcome
	puts    int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[diagram.Identity]diagram.Outcome)}
}

func (m *mapCache) Get(id diagram.Identity) (diagram.Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.entries[id]
	return o, ok
}

func (m *mapCache) Put(id diagram.Identity, o diagram.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = o
	m.puts++
}
