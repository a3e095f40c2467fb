package otp

import (
	"context"
	"sync"

	"github.com/example/twiller/internal/common"
)

// MemoryStore keeps challenges in process. Suitable for a single instance.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{challenges: make(map[string]Challenge)}
}

func (m *MemoryStore) Save(_ context.Context, key string, ch Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[key] = ch
	return nil
}

func (m *MemoryStore) Load(_ context.Context, key string) (Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[key]
	if !ok {
		return Challenge{}, common.ErrNotFound
	}
	return ch, nil
}

func (m *MemoryStore) Consume(_ context.Context, key, codeHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.challenges[key]
	if !ok || ch.CodeHash != codeHash {
		return false, nil
	}
	delete(m.challenges, key)
	return true, nil
}
