package storage

import (
	"context"
	"sync"
)

// MemoryArea keeps values in process memory.
type MemoryArea struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryArea() *MemoryArea {
	return &MemoryArea{data: make(map[string][]byte)}
}

func (m *MemoryArea) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (m *MemoryArea) Set(_ context.Context, items map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range items {
		m.data[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *MemoryArea) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}
