package storage

import (
	"bytes"
	"sync"

	"github.com/raine/vendepro/internal/listing"
)

// MemoryStore is an in-process SessionStore. Nothing survives Close.
type MemoryStore struct {
	mu         sync.Mutex
	authorized bool
	history    []byte
	cache      map[string]*listing.AnalysisResult
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cache: make(map[string]*listing.AnalysisResult)}
}

func (m *MemoryStore) IsAuthorized() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authorized, nil
}

func (m *MemoryStore) SetAuthorized(authorized bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.authorized = authorized
	return nil
}

func (m *MemoryStore) LoadHistory() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return bytes.Clone(m.history), nil
}

func (m *MemoryStore) SaveHistory(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = bytes.Clone(data)
	return nil
}

func (m *MemoryStore) GetAnalysisCache(key string) (*listing.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cache[key].Clone(), nil
}

func (m *MemoryStore) SetAnalysisCache(key string, result *listing.AnalysisResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache[key] = result.Clone()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
