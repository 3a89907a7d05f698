// internal/store/memory.go
//
// In-memory keyed store for live sessions.
//
// Characteristics:
//   - Values are kept by ID in a map; state is lost on restart.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Get returns ErrNotFound for missing IDs.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get for unknown IDs.
var ErrNotFound = errors.New("store: not found")

// Memory is a map-backed store of T keyed by string ID.
type Memory[T any] struct {
	mu    sync.RWMutex
	items map[string]T
}

// NewMemory constructs an empty store.
func NewMemory[T any]() *Memory[T] {
	return &Memory[T]{items: make(map[string]T)}
}

// Save adds or replaces the value under id.
func (m *Memory[T]) Save(_ context.Context, id string, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = v
	return nil
}

// Get looks up a value by id.
func (m *Memory[T]) Get(_ context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.items[id]; ok {
		return v, nil
	}
	var zero T
	return zero, ErrNotFound
}

// Delete removes id. It returns ErrNotFound if id was not stored.
func (m *Memory[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// Len returns the number of stored values.
func (m *Memory[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Range calls fn for every stored value until fn returns false. fn must not
// call back into the store.
func (m *Memory[T]) Range(fn func(id string, v T) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, v := range m.items {
		if !fn(id, v) {
			return
		}
	}
}
