package templatestore

import (
	"context"
	"sort"
	"sync"

	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// Memory is an in-memory Store. Records are kept in their encoded form so
// Load always returns an independent copy.
// It is safe for concurrent use and intended primarily for testing.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Save(_ context.Context, t *voiceprint.Template) error {
	if err := checkSave(t); err != nil {
		return err
	}
	data, err := Marshal(t)
	if err != nil {
		return storageErr("encode", t.OwnerID, err)
	}
	m.mu.Lock()
	m.data[t.OwnerID] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) Load(_ context.Context, ownerID string) (*voiceprint.Template, error) {
	if err := ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	data, ok := m.data[ownerID]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(ownerID)
	}
	return decodeFor(ownerID, data)
}

func (m *Memory) Delete(_ context.Context, ownerID string) error {
	if err := ValidateOwnerID(ownerID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.data, ownerID)
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.data))
	for id := range m.data {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
