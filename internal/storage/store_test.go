package storage

import (
	"path/filepath"
	"testing"

	"github.com/raine/vendepro/internal/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := DeriveKey("test-passphrase")
	require.NoError(t, err)
	return key
}

// eachStore runs fn against every backend.
func eachStore(t *testing.T, fn func(t *testing.T, s SessionStore)) {
	backends := map[string]func(t *testing.T) SessionStore{
		"sqlite": func(t *testing.T) SessionStore {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), testKey(t))
			require.NoError(t, err)
			return s
		},
		"bolt": func(t *testing.T) SessionStore {
			s, err := NewBoltStore(filepath.Join(t.TempDir(), "test.bolt"), testKey(t))
			require.NoError(t, err)
			return s
		},
		"memory": func(t *testing.T) SessionStore {
			return NewMemoryStore()
		},
	}
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()
			fn(t, s)
		})
	}
}

func TestStore_Authorization(t *testing.T) {
	eachStore(t, func(t *testing.T, s SessionStore) {
		ok, err := s.IsAuthorized()
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.SetAuthorized(true))
		ok, err = s.IsAuthorized()
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, s.SetAuthorized(false))
		ok, err = s.IsAuthorized()
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStore_History(t *testing.T) {
	eachStore(t, func(t *testing.T, s SessionStore) {
		data, err := s.LoadHistory()
		require.NoError(t, err)
		assert.Nil(t, data)

		require.NoError(t, s.SaveHistory([]byte(`[{"id":"a"}]`)))
		require.NoError(t, s.SaveHistory([]byte(`[{"id":"b"}]`)))

		data, err = s.LoadHistory()
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"b"}]`, string(data))
	})
}

func TestStore_AnalysisCache(t *testing.T) {
	eachStore(t, func(t *testing.T, s SessionStore) {
		got, err := s.GetAnalysisCache("missing")
		require.NoError(t, err)
		assert.Nil(t, got)

		result := &listing.AnalysisResult{
			FullAnalysis: "### 📝 TÍTULO OPTIMIZADO (TEXTO PLANO)\nSilla",
			MarketURLs:   []listing.MarketURL{{Title: "Wallapop", URI: "https://es.wallapop.com/item/1"}},
		}
		require.NoError(t, s.SetAnalysisCache("k", result))

		got, err = s.GetAnalysisCache("k")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, result, got)
	})
}

func TestSQLiteStore_HistoryEncryptedAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path, testKey(t))
	require.NoError(t, err)
	require.NoError(t, s.SaveHistory([]byte(`[{"id":"secret"}]`)))

	var raw string
	require.NoError(t, s.db.QueryRow("SELECT value FROM kv WHERE key = ?", KeyHistory).Scan(&raw))
	assert.NotContains(t, raw, "secret")
	require.NoError(t, s.Close())

	// Reopening with a different key cannot decrypt the blob.
	otherKey, err := DeriveKey("another-passphrase")
	require.NoError(t, err)
	s2, err := NewSQLiteStore(path, otherKey)
	require.NoError(t, err)
	defer s2.Close()
	_, err = s2.LoadHistory()
	assert.Error(t, err)
}

func TestBoltStore_HistoryEncryptedAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bolt")
	s, err := NewBoltStore(path, testKey(t))
	require.NoError(t, err)
	require.NoError(t, s.SaveHistory([]byte(`[{"id":"secret"}]`)))

	raw, err := s.get(kvBucket, KeyHistory)
	require.NoError(t, err)
	require.NotEmpty(t, raw)
	assert.NotContains(t, string(raw), "secret")

	data, err := s.LoadHistory()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"secret"}]`, string(data))
	require.NoError(t, s.Close())

	otherKey, err := DeriveKey("another-passphrase")
	require.NoError(t, err)
	s2, err := NewBoltStore(path, otherKey)
	require.NoError(t, err)
	defer s2.Close()
	_, err = s2.LoadHistory()
	assert.Error(t, err)
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetAuthorized(true))
	require.NoError(t, s.SaveHistory([]byte("[]")))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer s.Close()
	ok, err := s.IsAuthorized()
	require.NoError(t, err)
	assert.True(t, ok)
	data, err := s.LoadHistory()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestSealValue(t *testing.T) {
	key := testKey(t)
	sealed, err := sealValue(KeyHistory, []byte("hola"), key)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "hola")

	data, err := openValue(KeyHistory, sealed, key)
	require.NoError(t, err)
	assert.Equal(t, "hola", string(data))

	again, err := sealValue(KeyHistory, []byte("hola"), key)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "each seal uses a fresh nonce")
}

func TestSealValue_NoKeyPassesThrough(t *testing.T) {
	sealed, err := sealValue(KeyHistory, []byte("hola"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hola", sealed)

	data, err := openValue(KeyHistory, sealed, nil)
	require.NoError(t, err)
	assert.Equal(t, "hola", string(data))
}

func TestOpenValue_Rejects(t *testing.T) {
	key := testKey(t)
	sealed, err := sealValue(KeyHistory, []byte("hola"), key)
	require.NoError(t, err)
	otherKey, err := DeriveKey("another-passphrase")
	require.NoError(t, err)

	tests := []struct {
		name  string
		entry string
		value string
		key   []byte
	}{
		{"wrong key", KeyHistory, sealed, otherKey},
		{"other entry", "some-other-entry", sealed, key},
		{"not base64", KeyHistory, "not base64!", key},
		{"truncated", KeyHistory, sealed[:8], key},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := openValue(tt.entry, tt.value, tt.key)
			assert.ErrorIs(t, err, ErrSealedValue)
		})
	}
}

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey("x")
	require.NoError(t, err)
	b, err := DeriveKey("x")
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.Equal(t, a, b)

	_, err = DeriveKey("")
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(BackendMemory, "", nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = Open("redis", "", nil)
	assert.Error(t, err)
}
