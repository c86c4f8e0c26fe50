package trace

import (
	"io"
	"strconv"
	"sync"
)

// RingTracer keeps the most recent events in memory. The live editor uses
// it so tracing never writes over the screen; the buffer is dumped when the
// session ends.
type RingTracer struct {
	mu    sync.RWMutex
	buf   []Event
	next  int
	wrap  bool
	level Level
}

// NewRingTracer keeps up to size events (4096 when size <= 0).
func NewRingTracer(size int, level Level) *RingTracer {
	if size <= 0 {
		size = 4096
	}
	return &RingTracer{buf: make([]Event, size), level: level}
}

// Emit stores a copy of ev, overwriting the oldest event when full.
func (t *RingTracer) Emit(ev *Event) {
	if !t.level.accepts(ev) {
		return
	}
	stored := *ev
	stored.Seq = NextSeq()

	t.mu.Lock()
	t.buf[t.next] = stored
	t.next++
	if t.next == len(t.buf) {
		t.next, t.wrap = 0, true
	}
	t.mu.Unlock()
}

// Snapshot returns the stored events, oldest first.
func (t *RingTracer) Snapshot() []Event {
	return t.Filter(nil)
}

// Filter returns the stored events accepted by keep, oldest first. A nil
// keep accepts everything.
func (t *RingTracer) Filter(keep func(*Event) bool) []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Event
	visit := func(evs []Event) {
		for i := range evs {
			if keep == nil || keep(&evs[i]) {
				out = append(out, evs[i])
			}
		}
	}
	if t.wrap {
		visit(t.buf[t.next:])
	}
	visit(t.buf[:t.next])
	return out
}

// Generation returns the events tagged with generation gen.
func (t *RingTracer) Generation(gen uint64) []Event {
	return t.Filter(ForGeneration(gen))
}

// Count returns how many stored point events named name belong to
// generation gen.
func (t *RingTracer) Count(name string, gen uint64) int {
	match := ForGeneration(gen)
	return len(t.Filter(func(ev *Event) bool {
		return ev.Kind == KindPoint && ev.Name == name && match(ev)
	}))
}

// ForGeneration matches events whose Extra names generation gen.
func ForGeneration(gen uint64) func(*Event) bool {
	want := strconv.FormatUint(gen, 10)
	return func(ev *Event) bool {
		return ev.Extra[ExtraGeneration] == want
	}
}

// Dump writes the events accepted by keep (all when nil) to w.
func (t *RingTracer) Dump(w io.Writer, format Format, keep func(*Event) bool) error {
	events := t.Filter(keep)
	for i := range events {
		if _, err := w.Write(FormatEvent(&events[i], format)); err != nil {
			return err
		}
	}
	return nil
}

// Flush does nothing; events stay in memory until dumped.
func (t *RingTracer) Flush() error { return nil }

// Close does nothing.
func (t *RingTracer) Close() error { return nil }

// Level returns the configured level.
func (t *RingTracer) Level() Level { return t.level }

// Enabled reports whether events are kept.
func (t *RingTracer) Enabled() bool { return t.level > LevelOff }
