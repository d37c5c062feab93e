package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/galeria-market/galeria-client/internal/interfaces"
)

// Manager implements interfaces.StorageManager with an in-memory map.
// Used by tests and by the CLI when no durable storage path is configured.
type Manager struct {
	kv *KVStorage
}

// NewManager creates an in-memory storage manager.
func NewManager() *Manager {
	return &Manager{kv: NewKVStorage()}
}

// KeyValueStorage returns the KeyValue storage interface.
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// Close is a no-op for memory storage.
func (m *Manager) Close() error {
	return nil
}

// KVStorage is a mutex-guarded in-memory key-value store.
type KVStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewKVStorage creates an empty in-memory key-value store.
func NewKVStorage() *KVStorage {
	return &KVStorage{items: make(map[string]string)}
}

// Get retrieves a value by key.
func (s *KVStorage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.items[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", interfaces.ErrNotFound, key)
	}
	return val, nil
}

// Set stores a key-value pair.
func (s *KVStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

// Delete removes a key-value pair. Deleting a missing key is not an error.
func (s *KVStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// GetAll retrieves all key-value pairs.
func (s *KVStorage) GetAll(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make(map[string]string, len(s.items))
	for k, v := range s.items {
		result[k] = v
	}
	return result, nil
}
