package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/raine/vendepro/internal/listing"
	"github.com/raine/vendepro/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string) listing.HistoryItem {
	return listing.HistoryItem{
		ID:        id,
		Timestamp: 1700000000000,
		Image:     []byte("jpeg-" + id),
		Details:   listing.DefaultDetails(),
		Analysis:  listing.AnalysisResult{FullAnalysis: "### 📝 TÍTULO OPTIMIZADO (TEXTO PLANO)\n" + id},
	}
}

func TestAppend_NewestFirst(t *testing.T) {
	s := New(storage.NewMemoryStore())
	require.NoError(t, s.Append(item("a")))
	require.NoError(t, s.Append(item("b")))

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
}

func TestAppend_EvictsBeyondMax(t *testing.T) {
	s := New(storage.NewMemoryStore())
	for i := 1; i <= 25; i++ {
		require.NoError(t, s.Append(item(fmt.Sprintf("item-%d", i))))
	}

	list := s.List()
	require.Len(t, list, MaxItems)
	for i, it := range list {
		assert.Equal(t, fmt.Sprintf("item-%d", 25-i), it.ID)
	}
}

func TestNew_TruncatesOversizedPersistedList(t *testing.T) {
	items := make([]listing.HistoryItem, 0, 25)
	for i := 25; i >= 1; i-- {
		items = append(items, item(fmt.Sprintf("item-%d", i)))
	}
	data, err := json.Marshal(items)
	require.NoError(t, err)
	backend := storage.NewMemoryStore()
	require.NoError(t, backend.SaveHistory(data))

	s := New(backend)
	require.Equal(t, MaxItems, s.Len())
	list := s.List()
	assert.Equal(t, "item-25", list[0].ID)
	assert.Equal(t, "item-6", list[MaxItems-1].ID)
	_, ok := s.Get("item-5")
	assert.False(t, ok)
}

func TestNew_WrongKeyStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.bolt")
	key, err := storage.DeriveKey("first-passphrase")
	require.NoError(t, err)
	backend, err := storage.NewBoltStore(path, key)
	require.NoError(t, err)
	require.NoError(t, New(backend).Append(item("a")))
	require.NoError(t, backend.Close())

	otherKey, err := storage.DeriveKey("second-passphrase")
	require.NoError(t, err)
	backend, err = storage.NewBoltStore(path, otherKey)
	require.NoError(t, err)
	defer backend.Close()

	assert.Equal(t, 0, New(backend).Len())
}

func TestAppend_WritesThrough(t *testing.T) {
	backend := storage.NewMemoryStore()
	s := New(backend)
	require.NoError(t, s.Append(item("a")))

	reloaded := New(backend)
	require.Equal(t, 1, reloaded.Len())
	got, ok := reloaded.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("jpeg-a"), got.Image)
	assert.Equal(t, "a", got.Title())
}

func TestLoadPersisted_CorruptDataIsEmpty(t *testing.T) {
	backend := storage.NewMemoryStore()
	require.NoError(t, backend.SaveHistory([]byte("{not json")))

	s := New(backend)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.List())

	// Still usable afterwards
	require.NoError(t, s.Append(item("a")))
	assert.Equal(t, 1, s.Len())
}

type failingBackend struct {
	*storage.MemoryStore
	loadErr error
	saveErr error
}

func (f *failingBackend) LoadHistory() ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.MemoryStore.LoadHistory()
}

func (f *failingBackend) SaveHistory(data []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.MemoryStore.SaveHistory(data)
}

func TestLoadPersisted_BackendErrorIsEmpty(t *testing.T) {
	s := New(&failingBackend{MemoryStore: storage.NewMemoryStore(), loadErr: errors.New("decrypt failed")})
	assert.Equal(t, 0, s.Len())
}

func TestAppend_PersistErrorKeepsItem(t *testing.T) {
	s := New(&failingBackend{MemoryStore: storage.NewMemoryStore(), saveErr: errors.New("disk full")})
	err := s.Append(item("a"))
	assert.Error(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestAppend_CopiesItem(t *testing.T) {
	s := New(storage.NewMemoryStore())
	it := item("a")
	require.NoError(t, s.Append(it))

	it.Image[0] = 'X'
	list := s.List()
	list[0].Analysis.FullAnalysis = "mutated"

	got, _ := s.Get("a")
	assert.Equal(t, byte('j'), got.Image[0])
	assert.NotEqual(t, "mutated", got.Analysis.FullAnalysis)
}

func TestClear(t *testing.T) {
	backend := storage.NewMemoryStore()
	s := New(backend)
	require.NoError(t, s.Append(item("a")))
	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Len())

	data, err := backend.LoadHistory()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
	assert.Equal(t, 0, New(backend).Len())
}

func TestGet_Missing(t *testing.T) {
	s := New(storage.NewMemoryStore())
	_, ok := s.Get("nope")
	assert.False(t, ok)
}
