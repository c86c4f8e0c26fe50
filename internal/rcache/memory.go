package rcache

import (
	"container/list"
	"sync"

	"mermaidlive/internal/diagram"
)

// DefaultEntries bounds the memory cache when no size is configured.
const DefaultEntries = 128

// Memory is a thread-safe LRU of outcomes.
type Memory struct {
	mu    sync.Mutex
	cap   int
	order *list.List
	items map[diagram.Identity]*list.Element
}

type memEntry struct {
	id      diagram.Identity
	outcome diagram.Outcome
}

// NewMemory creates an LRU holding at most entries outcomes.
func NewMemory(entries int) *Memory {
	if entries <= 0 {
		entries = DefaultEntries
	}
	return &Memory{
		cap:   entries,
		order: list.New(),
		items: make(map[diagram.Identity]*list.Element, entries),
	}
}

// Get returns the outcome for id and marks it most recently used.
func (m *Memory) Get(id diagram.Identity) (diagram.Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[id]
	if !ok {
		return diagram.Outcome{}, false
	}
	m.order.MoveToFront(el)
	return el.Value.(*memEntry).outcome, true
}

// Put stores a successful outcome, evicting the least recently used one.
func (m *Memory) Put(id diagram.Identity, o diagram.Outcome) {
	if o.Status != diagram.StatusSuccess {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if el, ok := m.items[id]; ok {
		el.Value.(*memEntry).outcome = o
		m.order.MoveToFront(el)
		return
	}
	m.items[id] = m.order.PushFront(&memEntry{id: id, outcome: o})
	for m.order.Len() > m.cap {
		last := m.order.Back()
		m.order.Remove(last)
		delete(m.items, last.Value.(*memEntry).id)
	}
}

// Len returns the number of cached outcomes.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
