package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/go-resty/resty/v2"
	"github.com/raine/vendepro/config"
	"github.com/raine/vendepro/internal/gate"
	"github.com/raine/vendepro/internal/storage"
	"golang.org/x/term"
)

const geminiModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"

// isInteractiveTerminal returns true if both stdin and stdout are TTYs.
// This is used to determine if we can run the interactive setup wizard.
func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runSetupWizard collects the configuration interactively and writes it
// to the config file. Returns true if the app can continue starting.
func runSetupWizard() bool {
	fmt.Println()
	fmt.Println(titleStyle.MarginBottom(1).Render("🛍️  VendePro - Configuración inicial"))
	fmt.Println()

	geminiKey := os.Getenv(config.EnvGeminiAPIKey)
	backend := storage.BackendSQLite
	if current := os.Getenv(config.EnvStore); current != "" {
		backend = current
	}
	var pin, pinConfirm string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key").
				Description("Consíguela en https://aistudio.google.com/apikey").
				Value(&geminiKey).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("la clave es obligatoria")
					}
					return validateGeminiKey(geminiModelsURL, s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("PIN de acceso").
				Description("4 dígitos para desbloquear la app en este equipo").
				EchoMode(huh.EchoModePassword).
				CharLimit(gate.PINLength).
				Value(&pin).
				Validate(func(s string) error {
					if !gate.ValidPIN(s) {
						return gate.ErrInvalidPIN
					}
					return nil
				}),
			huh.NewInput().
				Title("Repite el PIN").
				EchoMode(huh.EchoModePassword).
				CharLimit(gate.PINLength).
				Value(&pinConfirm).
				Validate(func(s string) error {
					if s != pin {
						return errors.New("los PIN no coinciden")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Almacenamiento").
				Options(
					huh.NewOption("SQLite", storage.BackendSQLite),
					huh.NewOption("BoltDB", storage.BackendBolt),
				).
				Value(&backend),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nConfiguración cancelada.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	pinHash, err := gate.HashPIN(pin)
	if err != nil {
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		config.EnvGeminiAPIKey: geminiKey,
		config.EnvPINHash:      string(pinHash),
		config.EnvStore:        backend,
	}
	// A new key would make the existing history unreadable
	if os.Getenv(config.EnvStorageKey) == "" {
		values[config.EnvStorageKey] = generateStorageKey()
	}

	configPath, err := config.WriteEnvFile(values)
	if err != nil {
		fmt.Printf("\nError guardando la configuración: %v\n", err)
		waitOnWindows()
		return false
	}

	// Set values in current process
	for k, v := range values {
		os.Setenv(k, v)
	}
	os.Unsetenv(config.EnvPIN)

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuración guardada"))
	fmt.Println(subtleStyle.Render("  " + configPath))
	fmt.Println()

	return true
}

func generateStorageKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based if crypto/rand fails (unlikely)
		return fmt.Sprintf("vendepro-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}

// validateGeminiKey checks the key against the lightweight models list
// endpoint.
func validateGeminiKey(endpoint, key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	res, err := resty.New().R().
		SetContext(ctx).
		SetQueryParam("key", key).
		SetError(&apiErr).
		Get(endpoint)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.New("tiempo de espera agotado, revisa tu conexión")
		}
		return errors.New("no se pudo conectar, revisa tu conexión")
	}

	switch res.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		if apiErr.Error.Message != "" {
			return errors.New(apiErr.Error.Message)
		}
		return fmt.Errorf("clave rechazada (HTTP %d)", res.StatusCode())
	default:
		return fmt.Errorf("respuesta inesperada (HTTP %d)", res.StatusCode())
	}
}
