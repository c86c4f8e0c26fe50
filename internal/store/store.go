// Package store is a small generic key/value cell used as the output of
// the presentation surface, plus a decorator that traces every write.
package store

import (
	"sort"
	"sync"
)

// Store is a string-keyed map of values.
type Store[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string)
	Keys() []string
}

// Memory is a thread-safe in-memory Store.
type Memory[V any] struct {
	mu     sync.RWMutex
	values map[string]V
}

// NewMemory returns an empty store.
func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{values: make(map[string]V)}
}

func (m *Memory[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *Memory[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Keys returns the keys in sorted order.
func (m *Memory[V]) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
