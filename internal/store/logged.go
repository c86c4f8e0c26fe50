package store

import (
	"fmt"
	"strconv"

	"mermaidlive/internal/trace"
)

// Logged wraps a Store and emits a trace point for every write.
type Logged[V any] struct {
	inner  Store[V]
	tracer trace.Tracer
	name   string
}

// WithLogging decorates inner. name prefixes the emitted event names.
func WithLogging[V any](inner Store[V], tracer trace.Tracer, name string) *Logged[V] {
	return &Logged[V]{inner: inner, tracer: trace.OrNop(tracer), name: name}
}

func (l *Logged[V]) Get(key string) (V, bool) { return l.inner.Get(key) }

func (l *Logged[V]) Set(key string, value V) {
	l.inner.Set(key, value)
	trace.Point(l.tracer, trace.ScopeDetail, l.name+".set", key, map[string]string{"value": summarize(value)})
}

func (l *Logged[V]) Delete(key string) {
	l.inner.Delete(key)
	trace.Point(l.tracer, trace.ScopeDetail, l.name+".delete", key, nil)
}

func (l *Logged[V]) Keys() []string { return l.inner.Keys() }

const summaryLimit = 48

func summarize(v any) string {
	s := fmt.Sprint(v)
	if len(s) <= summaryLimit {
		return strconv.Quote(s)
	}
	return strconv.Quote(s[:summaryLimit]) + "…(" + strconv.Itoa(len(s)) + " bytes)"
}
