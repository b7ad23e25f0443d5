package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/raine/vendepro/internal/listing"
	bolt "go.etcd.io/bbolt"
)

var (
	kvBucket    = []byte("kv")
	cacheBucket = []byte("analysis_cache")
)

// BoltStore implements SessionStore on a single BoltDB file, with the
// keyed entries and the analysis cache kept in separate buckets.
type BoltStore struct {
	db            *bolt.DB
	encryptionKey []byte
}

// NewBoltStore opens (or creates) the BoltDB file at path.
func NewBoltStore(path string, encryptionKey []byte) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{kvBucket, cacheBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore{db: db, encryptionKey: encryptionKey}, nil
}

func (s *BoltStore) get(bucket []byte, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get([]byte(key))
		if v != nil {
			// v is only valid for the life of the transaction
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) put(bucket []byte, key string, value []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), value)
	})
}

// IsAuthorized reports whether this device has passed the PIN gate.
func (s *BoltStore) IsAuthorized() (bool, error) {
	v, err := s.get(kvBucket, KeyAuthorized)
	if err != nil {
		return false, fmt.Errorf("failed to read authorization: %w", err)
	}
	return string(v) == authorizedValue, nil
}

// SetAuthorized persists the flag. Clearing it removes the entry.
func (s *BoltStore) SetAuthorized(authorized bool) error {
	var err error
	if authorized {
		err = s.put(kvBucket, KeyAuthorized, []byte(authorizedValue))
	} else {
		err = s.db.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(kvBucket).Delete([]byte(KeyAuthorized))
		})
	}
	if err != nil {
		return fmt.Errorf("failed to save authorization: %w", err)
	}
	return nil
}

// LoadHistory returns the decrypted history blob, or nil if none was saved.
func (s *BoltStore) LoadHistory() ([]byte, error) {
	v, err := s.get(kvBucket, KeyHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if v == nil {
		return nil, nil
	}
	data, err := openValue(KeyHistory, string(v), s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt history: %w", err)
	}
	return data, nil
}

// SaveHistory replaces the stored history blob.
func (s *BoltStore) SaveHistory(data []byte) error {
	value, err := sealValue(KeyHistory, data, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt history: %w", err)
	}
	if err := s.put(kvBucket, KeyHistory, []byte(value)); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	return nil
}

// GetAnalysisCache retrieves a cached analysis by key.
// Returns nil, nil if no cache entry exists.
func (s *BoltStore) GetAnalysisCache(key string) (*listing.AnalysisResult, error) {
	v, err := s.get(cacheBucket, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis cache: %w", err)
	}
	if v == nil {
		return nil, nil
	}
	var result listing.AnalysisResult
	if err := json.Unmarshal(v, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached analysis: %w", err)
	}
	return &result, nil
}

// SetAnalysisCache stores an analysis result in the cache.
func (s *BoltStore) SetAnalysisCache(key string, result *listing.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	if err := s.put(cacheBucket, key, data); err != nil {
		return fmt.Errorf("failed to cache analysis: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
