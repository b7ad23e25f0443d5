// Package history keeps the bounded, newest-first list of completed listings.
package history

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/raine/vendepro/internal/listing"
	"github.com/raine/vendepro/internal/storage"
	"github.com/rs/zerolog/log"
)

// MaxItems is how many listings are kept; older ones are evicted.
const MaxItems = 20

// Store holds the history list and writes it through to the session store
// on every mutation.
type Store struct {
	mu      sync.Mutex
	backend storage.SessionStore
	items   []listing.HistoryItem
}

// New creates a history store and loads whatever was persisted.
func New(backend storage.SessionStore) *Store {
	s := &Store{backend: backend}
	s.LoadPersisted()
	return s
}

// LoadPersisted replaces the in-memory list with the persisted one.
// Unreadable data leaves the history empty.
func (s *Store) LoadPersisted() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	data, err := s.backend.LoadHistory()
	if err != nil {
		log.Warn().Err(err).Msg("failed to load history, starting empty")
		return
	}
	if len(data) == 0 {
		return
	}

	var items []listing.HistoryItem
	if err := json.Unmarshal(data, &items); err != nil {
		log.Warn().Err(err).Msg("failed to decode history, starting empty")
		return
	}
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	s.items = items
	log.Debug().Int("count", len(items)).Msg("history loaded")
}

// Append adds item as the newest entry and evicts anything beyond MaxItems.
// The in-memory list is updated even if persisting fails.
func (s *Store) Append(item listing.HistoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]listing.HistoryItem, 0, len(s.items)+1)
	items = append(items, item.Clone())
	items = append(items, s.items...)
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}
	s.items = items
	return s.persist()
}

// List returns a copy of the history, newest first.
func (s *Store) List() []listing.HistoryItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]listing.HistoryItem, len(s.items))
	for i, item := range s.items {
		out[i] = item.Clone()
	}
	return out
}

// Get returns the entry with the given ID.
func (s *Store) Get(id string) (listing.HistoryItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.items {
		if item.ID == id {
			return item.Clone(), true
		}
	}
	return listing.HistoryItem{}, false
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear removes every entry.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	return s.persist()
}

func (s *Store) persist() error {
	items := s.items
	if items == nil {
		items = []listing.HistoryItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.backend.SaveHistory(data); err != nil {
		return fmt.Errorf("failed to persist history: %w", err)
	}
	return nil
}
