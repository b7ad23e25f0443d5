package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config dir at a temp dir and clears our variables.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	for _, name := range []string{EnvGeminiAPIKey, EnvPIN, EnvPINHash, EnvStorageKey, EnvDBPath, EnvStore, EnvAnalyzeTimeout, EnvEnhanceTimeout, EnvOutputDir} {
		t.Setenv(name, "")
	}
	return dir
}

func TestLoad_MissingAPIKey(t *testing.T) {
	isolate(t)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvGeminiAPIKey)
	assert.Equal(t, []string{EnvGeminiAPIKey}, CheckRequired())
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	t.Setenv(EnvGeminiAPIKey, "key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "key", cfg.GeminiAPIKey)
	assert.Equal(t, DefaultPIN, cfg.PIN)
	assert.True(t, cfg.UsesDefaultPIN())
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "vendepro.db", filepath.Base(cfg.DBPath))
	assert.Equal(t, 3*time.Minute, cfg.AnalyzeTimeout)
	assert.Equal(t, 2*time.Minute, cfg.EnhanceTimeout)
	assert.Equal(t, ".", cfg.OutputDir)
}

func TestLoad_Overrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvGeminiAPIKey, "key")
	t.Setenv(EnvPIN, "9876")
	t.Setenv(EnvStore, "Bolt")
	t.Setenv(EnvAnalyzeTimeout, "90s")
	t.Setenv(EnvOutputDir, "/tmp/out")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9876", cfg.PIN)
	assert.False(t, cfg.UsesDefaultPIN())
	assert.Equal(t, "bolt", cfg.Store)
	assert.Equal(t, "vendepro.bolt", filepath.Base(cfg.DBPath))
	assert.Equal(t, 90*time.Second, cfg.AnalyzeTimeout)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
}

func TestLoad_HashWinsOverPlainPIN(t *testing.T) {
	isolate(t)
	t.Setenv(EnvGeminiAPIKey, "key")
	t.Setenv(EnvPIN, "9876")
	t.Setenv(EnvPINHash, "$2a$10$abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.PIN)
	assert.Equal(t, "$2a$10$abc", cfg.PINHash)
	assert.False(t, cfg.UsesDefaultPIN())
}

func TestLoad_BadTimeout(t *testing.T) {
	isolate(t)
	t.Setenv(EnvGeminiAPIKey, "key")

	t.Setenv(EnvEnhanceTimeout, "soon")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv(EnvEnhanceTimeout, "-1s")
	_, err = Load()
	assert.Error(t, err)
}

func TestWriteEnvFile_Merges(t *testing.T) {
	isolate(t)

	path, err := WriteEnvFile(map[string]string{EnvGeminiAPIKey: "first", "OTHER": "x y"})
	require.NoError(t, err)

	_, err = WriteEnvFile(map[string]string{EnvGeminiAPIKey: "second", EnvPINHash: "$2a$10$h"})
	require.NoError(t, err)

	values, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "second", values[EnvGeminiAPIKey])
	assert.Equal(t, "$2a$10$h", values[EnvPINHash])
	assert.Equal(t, "x y", values["OTHER"])

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestQuoteEnvValue(t *testing.T) {
	assert.Equal(t, `"plain"`, quoteEnvValue("plain"))
	assert.Equal(t, `'$2a$10$abc'`, quoteEnvValue("$2a$10$abc"))
}
