package storage

import (
	"context"
	"sync"

	"github.com/zhouzirui/essay-coach/backend/internal/model/essay"
)

// Memory keeps snapshots in process memory. Contents are lost on restart.
type Memory struct {
	mu    sync.RWMutex
	items map[string]essay.Snapshot
}

// NewMemory returns an empty in-memory snapshot store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]essay.Snapshot)}
}

// Save replaces the snapshot stored under key.
func (m *Memory) Save(_ context.Context, key string, snap essay.Snapshot) error {
	if key == "" {
		return ErrEmptyKey
	}
	snap.Messages = append([]essay.Message(nil), snap.Messages...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = snap
	return nil
}

// Load returns the snapshot stored under key, if any.
func (m *Memory) Load(_ context.Context, key string) (essay.Snapshot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.items[key]
	if !ok {
		return essay.Snapshot{}, false, nil
	}
	snap.Messages = append([]essay.Message(nil), snap.Messages...)
	return snap, true, nil
}
