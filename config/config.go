package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "vendepro"
	EnvFileName = "config.env"
)

// Environment variable names
const (
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvPIN            = "VENDEPRO_PIN"
	EnvPINHash        = "VENDEPRO_PIN_HASH"
	EnvStorageKey     = "VENDEPRO_STORAGE_KEY"
	EnvDBPath         = "VENDEPRO_DB_PATH"
	EnvStore          = "VENDEPRO_STORE"
	EnvAnalyzeTimeout = "VENDEPRO_ANALYZE_TIMEOUT"
	EnvEnhanceTimeout = "VENDEPRO_ENHANCE_TIMEOUT"
	EnvOutputDir      = "VENDEPRO_OUTPUT_DIR"
)

// DefaultPIN is used when neither VENDEPRO_PIN nor VENDEPRO_PIN_HASH is set.
const DefaultPIN = "1234"

const (
	defaultAnalyzeTimeout = 3 * time.Minute
	defaultEnhanceTimeout = 2 * time.Minute
)

// RequiredEnvVars lists the variables that must be set before the app starts.
var RequiredEnvVars = []string{EnvGeminiAPIKey}

// envFileOrder is the order WriteEnvFile writes known keys in.
var envFileOrder = []string{EnvGeminiAPIKey, EnvPINHash, EnvStorageKey, EnvStore, EnvDBPath, EnvOutputDir}

// Config is the resolved runtime configuration.
type Config struct {
	GeminiAPIKey string
	// PIN is the plain PIN, only set when PINHash is empty.
	PIN     string
	PINHash string
	// StorageKey is the passphrase the history encryption key is derived from.
	// Empty means history is stored unencrypted.
	StorageKey     string
	DBPath         string
	Store          string
	AnalyzeTimeout time.Duration
	EnhanceTimeout time.Duration
	OutputDir      string

	defaultPIN bool
}

// UsesDefaultPIN reports whether no PIN was configured.
func (c Config) UsesDefaultPIN() bool {
	return c.defaultPIN
}

// Dir returns the application's config directory path.
// Creates the directory if it doesn't exist.
func Dir() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}

	configDir := filepath.Join(configBase, AppName)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// FilePath returns the full path to the config file.
func FilePath() (string, error) {
	configDir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
func LoadEnvFile() {
	configPath, err := FilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// CheckRequired returns the names of any missing required variables.
func CheckRequired() []string {
	var missing []string
	for _, v := range RequiredEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		GeminiAPIKey: os.Getenv(EnvGeminiAPIKey),
		PINHash:      strings.TrimSpace(os.Getenv(EnvPINHash)),
		StorageKey:   os.Getenv(EnvStorageKey),
		DBPath:       os.Getenv(EnvDBPath),
		Store:        strings.ToLower(strings.TrimSpace(os.Getenv(EnvStore))),
		OutputDir:    os.Getenv(EnvOutputDir),
	}
	if missing := CheckRequired(); len(missing) > 0 {
		return cfg, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if cfg.PINHash == "" {
		cfg.PIN = strings.TrimSpace(os.Getenv(EnvPIN))
		if cfg.PIN == "" {
			cfg.PIN = DefaultPIN
			cfg.defaultPIN = true
		}
	}

	if cfg.Store == "" {
		cfg.Store = "sqlite"
	}
	if cfg.DBPath == "" {
		dir, err := Dir()
		if err != nil {
			return cfg, err
		}
		name := AppName + ".db"
		if cfg.Store == "bolt" {
			name = AppName + ".bolt"
		}
		cfg.DBPath = filepath.Join(dir, name)
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}

	var err error
	if cfg.AnalyzeTimeout, err = durationEnv(EnvAnalyzeTimeout, defaultAnalyzeTimeout); err != nil {
		return cfg, err
	}
	if cfg.EnhanceTimeout, err = durationEnv(EnvEnhanceTimeout, defaultEnhanceTimeout); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 90s or 3m: %w", name, err)
	}
	if d <= 0 {
		return 0, errors.New(name + " must be positive")
	}
	return d, nil
}

// WriteEnvFile merges values into the config file and returns its path.
// Uses restrictive permissions (0600) since the file contains secrets.
func WriteEnvFile(values map[string]string) (string, error) {
	configPath, err := FilePath()
	if err != nil {
		return "", err
	}

	existing, err := godotenv.Read(configPath)
	if err != nil {
		existing = map[string]string{}
	}
	for k, v := range values {
		existing[k] = v
	}

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	// Known keys first in a fixed order
	written := make(map[string]bool)
	write := func(key string) error {
		val, ok := existing[key]
		if !ok || written[key] {
			return nil
		}
		written[key] = true
		if _, err := fmt.Fprintf(f, "%s=%s\n", key, quoteEnvValue(val)); err != nil {
			return fmt.Errorf("failed to write %s: %w", key, err)
		}
		return nil
	}
	for _, key := range envFileOrder {
		if err := write(key); err != nil {
			return "", err
		}
	}
	for key := range existing {
		if err := write(key); err != nil {
			return "", err
		}
	}

	return configPath, nil
}

// quoteEnvValue quotes val for godotenv. Double-quoted values get $VAR
// expansion, so values containing $ (bcrypt hashes) are single-quoted.
func quoteEnvValue(val string) string {
	if strings.Contains(val, "$") && !strings.Contains(val, "'") {
		return "'" + val + "'"
	}
	return fmt.Sprintf("%q", val)
}
