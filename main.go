package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/raine/vendepro/config"
	"github.com/raine/vendepro/internal/gate"
	"github.com/raine/vendepro/internal/history"
	"github.com/raine/vendepro/internal/llm"
	"github.com/raine/vendepro/internal/photo"
	"github.com/raine/vendepro/internal/storage"
	"github.com/raine/vendepro/internal/workflow"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const logFileName = "vendepro.log"

var (
	version = "dev"
	debug   bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatalWithWait("%v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vendepro",
		Short:         "Turn a photo of an item into a ready-to-post marketplace listing",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context())
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newHistoryCmd(), newSetupCmd(), newLockCmd())
	return root
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()
			printHistory(cmd.OutOrStdout(), d.history.List())
			return nil
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all saved listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()
			if err := d.history.Clear(); err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgHistoryCleared)
			return nil
		},
	})
	return cmd
}

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Run the configuration wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isInteractiveTerminal() {
				return errors.New("setup needs an interactive terminal")
			}
			if !runSetupWizard() {
				return errors.New("setup not completed")
			}
			return nil
		},
	}
}

func newLockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Require the PIN again on next start",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := loadDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()
			if err := d.gate.Lock(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), MsgLocked)
			return nil
		},
	}
}

// setupLogging sends logs to a file in the config directory since the
// terminal belongs to the forms. With --debug they also go to stderr.
func setupLogging(stderr io.Writer) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// JOURNAL_STREAM is set by systemd; journald handles the output
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: stderr})
		return nil
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	logPath := filepath.Join(dir, logFileName)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: logFile, NoColor: true}
	if debug {
		out = io.MultiWriter(zerolog.ConsoleWriter{Out: stderr}, out)
	}
	log.Logger = log.Output(out)
	log.Debug().Str("logFile", logPath).Msg("logging to file")
	return nil
}

// deps are the pieces every command shares.
type deps struct {
	cfg     config.Config
	store   storage.SessionStore
	gate    *gate.Gate
	history *history.Store
	// gemini is only set when openDeps was asked for a gateway.
	gemini llm.Gateway
}

func (d *deps) Close() error {
	return d.store.Close()
}

// loadConfig loads config.env and, on a TTY, runs the wizard when required
// values are missing.
func loadConfig() (config.Config, error) {
	config.LoadEnvFile()

	if missing := config.CheckRequired(); len(missing) > 0 {
		if !isInteractiveTerminal() {
			return config.Config{}, fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
		}
		if !runSetupWizard() {
			return config.Config{}, errors.New("setup not completed")
		}
	}
	return config.Load()
}

// openDeps opens the store, hashes the PIN and, with withGateway, builds the
// Gemini client. The three are independent and run side by side.
func openDeps(ctx context.Context, cfg config.Config, withGateway bool) (*deps, error) {
	var (
		store   storage.SessionStore
		pinHash []byte
		gemini  llm.Gateway
	)

	g := new(errgroup.Group)
	g.Go(func() error {
		var encryptionKey []byte
		if cfg.StorageKey != "" {
			key, err := storage.DeriveKey(cfg.StorageKey)
			if err != nil {
				return fmt.Errorf("failed to derive encryption key: %w", err)
			}
			encryptionKey = key
		} else {
			log.Warn().Msg("VENDEPRO_STORAGE_KEY not set, history is stored unencrypted")
		}

		s, err := storage.Open(cfg.Store, cfg.DBPath, encryptionKey)
		if err != nil {
			return fmt.Errorf("failed to initialize session store: %w", err)
		}
		store = s
		log.Info().Str("backend", cfg.Store).Str("dbPath", cfg.DBPath).Msg("session store initialized")
		return nil
	})
	g.Go(func() error {
		if cfg.PINHash != "" {
			pinHash = []byte(cfg.PINHash)
			return nil
		}
		if cfg.UsesDefaultPIN() {
			log.Warn().Msg("no PIN configured, using the default PIN")
		}
		h, err := gate.HashPIN(cfg.PIN)
		if err != nil {
			return fmt.Errorf("invalid VENDEPRO_PIN: %w", err)
		}
		pinHash = h
		return nil
	})
	if withGateway {
		g.Go(func() error {
			gw, err := llm.NewGeminiGateway(ctx, cfg.GeminiAPIKey)
			if err != nil {
				return fmt.Errorf("failed to initialize gemini gateway: %w", err)
			}
			gemini = gw
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}

	return &deps{
		cfg:     cfg,
		store:   store,
		gate:    gate.New(store, pinHash),
		history: history.New(store),
		gemini:  gemini,
	}, nil
}

// loadDeps is openDeps for the commands that only touch local state.
func loadDeps(ctx context.Context) (*deps, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openDeps(ctx, cfg, false)
}

func runInteractive(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	d, err := openDeps(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer d.Close()

	gateway := llm.NewCachedGateway(d.gemini, d.store)
	log.Info().Msg("gemini gateway initialized, analysis caching enabled")

	machine := workflow.New(gateway, d.history,
		workflow.WithAnalyzeTimeout(d.cfg.AnalyzeTimeout),
		workflow.WithEnhanceTimeout(d.cfg.EnhanceTimeout),
	)

	a := &app{
		out:       os.Stdout,
		gate:      d.gate,
		history:   d.history,
		machine:   machine,
		loader:    photo.NewLoader(),
		outputDir: d.cfg.OutputDir,
		copy:      copyToClipboard,
	}

	if err := a.run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, errQuit) {
		log.Error().Err(err).Msg("shutdown with error")
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}
