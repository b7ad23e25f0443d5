package storage

import "fmt"

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// Open creates the SessionStore for the named backend.
func Open(backend, path string, encryptionKey []byte) (SessionStore, error) {
	switch backend {
	case "", BackendSQLite:
		return NewSQLiteStore(path, encryptionKey)
	case BackendBolt:
		return NewBoltStore(path, encryptionKey)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
