package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/raine/vendepro/config"
	"github.com/raine/vendepro/internal/gate"
	"github.com/raine/vendepro/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDeps_LocalOnly(t *testing.T) {
	cfg := config.Config{Store: storage.BackendMemory, PIN: "2468", StorageKey: "passphrase"}

	d, err := openDeps(context.Background(), cfg, false)
	require.NoError(t, err)
	defer d.Close()

	assert.Nil(t, d.gemini)
	assert.Equal(t, 0, d.history.Len())
	require.NoError(t, enterPIN(d.gate, "2468"))
	assert.True(t, d.gate.IsAuthorized())
}

func TestOpenDeps_UsesConfiguredHash(t *testing.T) {
	hash, err := gate.HashPIN("1357")
	require.NoError(t, err)
	cfg := config.Config{Store: storage.BackendMemory, PINHash: string(hash)}

	d, err := openDeps(context.Background(), cfg, false)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, enterPIN(d.gate, "1357"))
	assert.True(t, d.gate.IsAuthorized())
}

func TestOpenDeps_WithGateway(t *testing.T) {
	cfg := config.Config{Store: storage.BackendMemory, PIN: "2468", GeminiAPIKey: "test-key"}

	d, err := openDeps(context.Background(), cfg, true)
	require.NoError(t, err)
	defer d.Close()

	assert.NotNil(t, d.gemini)
}

func TestOpenDeps_Errors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr string
	}{
		{"invalid PIN", config.Config{Store: storage.BackendMemory, PIN: "12"}, "invalid VENDEPRO_PIN"},
		{"unknown backend", config.Config{Store: "redis", PIN: "1234"}, "unknown store backend"},
		{"missing api key", config.Config{Store: storage.BackendMemory, PIN: "1234"}, "failed to initialize gemini gateway"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := openDeps(context.Background(), tt.cfg, true)
			require.Error(t, err)
			assert.Nil(t, d)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenDeps_ClosesStoreOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vendepro.db")
	cfg := config.Config{Store: storage.BackendBolt, DBPath: path, PIN: "12"}

	_, err := openDeps(context.Background(), cfg, false)
	require.Error(t, err)

	// bolt holds a file lock, so a leaked handle would make this time out
	store, err := storage.NewBoltStore(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
