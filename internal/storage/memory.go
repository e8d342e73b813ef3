package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore держит коллекции в памяти. Используется в тестах.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]json.RawMessage
}

// NewMemoryStore создает пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]json.RawMessage)}
}

// Load возвращает копию записей коллекции.
func (s *MemoryStore) Load(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRecords(s.data[name]), nil
}

// Save заменяет коллекцию копией records.
func (s *MemoryStore) Save(ctx context.Context, name string, records []json.RawMessage) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = cloneRecords(records)
	return nil
}

// Update выполняет fn под общей блокировкой.
func (s *MemoryStore) Update(ctx context.Context, name string, fn UpdateFunc) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := fn(cloneRecords(s.data[name]))
	if err != nil {
		return err
	}
	s.data[name] = cloneRecords(updated)
	return nil
}
