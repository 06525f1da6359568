package snapshot

import (
	"context"
	"sync"
)

// MemoryStore keeps the slot in process memory. It backs tests and
// throwaway runs.
type MemoryStore struct {
	mu      sync.Mutex
	slotKey string
	data    []byte
	saves   int
	failErr error
}

// NewMemoryStore creates an empty in-memory slot.
func NewMemoryStore(slotKey string) *MemoryStore {
	return &MemoryStore{slotKey: slotKey}
}

// NewMemoryStoreWith creates an in-memory slot pre-populated with data.
func NewMemoryStoreWith(slotKey string, data []byte) *MemoryStore {
	s := NewMemoryStore(slotKey)
	s.data = append([]byte(nil), data...)
	return s
}

func (s *MemoryStore) Load(ctx context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, false, nil
	}
	return append([]byte(nil), s.data...), true, nil
}

func (s *MemoryStore) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return s.failErr
	}
	s.data = append([]byte(nil), data...)
	s.saves++
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// FailSaves makes subsequent saves return err. Pass nil to recover.
func (s *MemoryStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Saves returns the number of successful saves.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
