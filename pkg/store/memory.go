package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	flowio "github.com/flowforge/flowforge/pkg/io"
)

// Memory is an in-memory Store. It is safe for concurrent use and is the
// default when no persistence backend is configured; it also backs the
// store tests.
type Memory struct {
	mu       sync.RWMutex
	programs map[string]flowio.Program
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{programs: make(map[string]flowio.Program)}
}

// Save stores p under name, overwriting any previous program.
func (m *Memory) Save(_ context.Context, name string, p flowio.Program) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Name = name
	m.programs[name] = p
	return nil
}

// Load returns the program stored under name.
func (m *Memory) Load(_ context.Context, name string) (flowio.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.programs[name]
	if !ok {
		return flowio.Program{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// List returns all stored program names, sorted.
func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.programs))
	for name := range m.programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the program stored under name.
func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.programs[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(m.programs, name)
	return nil
}

var _ Store = (*Memory)(nil)
