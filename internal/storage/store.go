package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/raine/vendepro/internal/listing"
	_ "modernc.org/sqlite"
)

// Keys of the two durable entries shared by the gate and the history store.
const (
	KeyAuthorized = "vendepro_auth"
	KeyHistory    = "vendepro_history"
)

const authorizedValue = "true"

// SessionStore is the device-local durable state: the authorization flag,
// the encoded history list and the analysis cache.
type SessionStore interface {
	IsAuthorized() (bool, error)
	SetAuthorized(authorized bool) error

	// LoadHistory returns the encoded history list, or nil if none was saved.
	LoadHistory() ([]byte, error)
	SaveHistory(data []byte) error

	// Analysis cache methods
	GetAnalysisCache(key string) (*listing.AnalysisResult, error)
	SetAnalysisCache(key string, result *listing.AnalysisResult) error

	Close() error
}

// SQLiteStore implements SessionStore using SQLite. The history blob is
// encrypted when an encryption key is supplied.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based session store.
// The dbPath is the path to the SQLite database file.
// The encryptionKey may be nil to store history unencrypted.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	// WAL mode and busy timeout for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	// The file exists after init; images and listings are private.
	_ = os.Chmod(dbPath, 0600)

	return store, nil
}

func (s *SQLiteStore) init() error {
	kvQuery := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(kvQuery); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}

	cacheQuery := `
	CREATE TABLE IF NOT EXISTS analysis_cache (
		cache_key TEXT PRIMARY KEY,
		full_analysis TEXT NOT NULL,
		market_urls TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(cacheQuery); err != nil {
		return fmt.Errorf("failed to create analysis_cache table: %w", err)
	}

	return nil
}

func (s *SQLiteStore) get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteStore) put(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// IsAuthorized reports whether this device has passed the PIN gate.
func (s *SQLiteStore) IsAuthorized() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok, err := s.get(KeyAuthorized)
	if err != nil || !ok {
		return false, err
	}
	return value == authorizedValue, nil
}

// SetAuthorized persists the flag. Clearing it removes the entry.
func (s *SQLiteStore) SetAuthorized(authorized bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !authorized {
		if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", KeyAuthorized); err != nil {
			return fmt.Errorf("failed to clear authorization: %w", err)
		}
		return nil
	}
	return s.put(KeyAuthorized, authorizedValue)
}

// LoadHistory returns the decrypted history blob.
// Returns nil, nil if no history was saved.
func (s *SQLiteStore) LoadHistory() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok, err := s.get(KeyHistory)
	if err != nil || !ok {
		return nil, err
	}
	data, err := openValue(KeyHistory, value, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt history: %w", err)
	}
	return data, nil
}

// SaveHistory replaces the stored history blob.
func (s *SQLiteStore) SaveHistory(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, err := sealValue(KeyHistory, data, s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt history: %w", err)
	}
	return s.put(KeyHistory, value)
}

// GetAnalysisCache retrieves a cached analysis by key.
// Returns nil, nil if no cache entry exists.
func (s *SQLiteStore) GetAnalysisCache(key string) (*listing.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var fullAnalysis, marketURLs string
	err := s.db.QueryRow(
		"SELECT full_analysis, market_urls FROM analysis_cache WHERE cache_key = ?",
		key,
	).Scan(&fullAnalysis, &marketURLs)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis cache: %w", err)
	}

	result := &listing.AnalysisResult{FullAnalysis: fullAnalysis}
	if err := json.Unmarshal([]byte(marketURLs), &result.MarketURLs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal market urls: %w", err)
	}
	return result, nil
}

// SetAnalysisCache stores an analysis result in the cache.
func (s *SQLiteStore) SetAnalysisCache(key string, result *listing.AnalysisResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls, err := json.Marshal(result.MarketURLs)
	if err != nil {
		return fmt.Errorf("failed to marshal market urls: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO analysis_cache (cache_key, full_analysis, market_urls)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			full_analysis = excluded.full_analysis,
			market_urls = excluded.market_urls,
			created_at = CURRENT_TIMESTAMP
	`, key, result.FullAnalysis, string(urls))
	if err != nil {
		return fmt.Errorf("failed to cache analysis: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
