package cache

import (
	"context"
	"sync"

	"github.com/handiism/multitok/internal/model"
)

// Memory is a Store that lives only as long as the process.
type Memory struct {
	mu    sync.RWMutex
	links map[model.Link]struct{}
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{links: make(map[model.Link]struct{})}
}

func (m *Memory) Contains(_ context.Context, link model.Link) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.links[link]
	return ok, nil
}

func (m *Memory) MarkDone(_ context.Context, link model.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[link] = struct{}{}
	return nil
}

// Len returns the number of stored links.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.links)
}

func (m *Memory) Close() error {
	return nil
}
