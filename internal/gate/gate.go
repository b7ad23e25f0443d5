// Package gate implements the numeric PIN lock shown before first use on a
// device. It is a convenience lock: attempts are unlimited.
package gate

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raine/vendepro/internal/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const (
	// PINLength is the number of digits in a PIN.
	PINLength = 4
	// DefaultResetDelay is how long a wrong PIN stays on screen before the input clears.
	DefaultResetDelay = 500 * time.Millisecond
)

var (
	ErrInvalidDigit = errors.New("digit must be between 0 and 9")
	ErrIncorrectPIN = errors.New("incorrect PIN")
	ErrInvalidPIN   = fmt.Errorf("PIN must be exactly %d digits", PINLength)
)

// HashPIN validates pin and returns its bcrypt hash.
func HashPIN(pin string) ([]byte, error) {
	if !ValidPIN(pin) {
		return nil, ErrInvalidPIN
	}
	return bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
}

// ValidPIN reports whether pin is exactly PINLength decimal digits.
func ValidPIN(pin string) bool {
	if len(pin) != PINLength {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// Option configures a Gate.
type Option func(*Gate)

// WithResetDelay overrides how long the error state lasts.
func WithResetDelay(d time.Duration) Option {
	return func(g *Gate) { g.resetDelay = d }
}

// Gate tracks PIN entry. Digits arrive one at a time; the fourth digit
// triggers the comparison.
type Gate struct {
	mu         sync.Mutex
	store      storage.SessionStore
	secretHash []byte
	resetDelay time.Duration

	buffer     []byte
	pinError   bool
	authorized bool
	pending    sync.WaitGroup
}

// New creates a gate. A device that was authorized before starts unlocked.
func New(store storage.SessionStore, secretHash []byte, opts ...Option) *Gate {
	g := &Gate{
		store:      store,
		secretHash: secretHash,
		resetDelay: DefaultResetDelay,
	}
	for _, opt := range opts {
		opt(g)
	}

	authorized, err := store.IsAuthorized()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read authorization flag")
	}
	g.authorized = authorized
	return g
}

// SubmitDigit appends d to the PIN buffer. Input is ignored once authorized,
// while the buffer is full, or while a wrong PIN is being shown.
// Returns ErrIncorrectPIN when the fourth digit completes a wrong PIN.
func (g *Gate) SubmitDigit(d int) error {
	if d < 0 || d > 9 {
		return ErrInvalidDigit
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.authorized || g.pinError || len(g.buffer) >= PINLength {
		return nil
	}
	g.buffer = append(g.buffer, byte('0'+d))
	if len(g.buffer) < PINLength {
		return nil
	}

	if bcrypt.CompareHashAndPassword(g.secretHash, g.buffer) == nil {
		g.authorized = true
		g.buffer = nil
		log.Info().Msg("device authorized")
		// the flag only matters for the next launch; this session stays open
		if err := g.store.SetAuthorized(true); err != nil {
			log.Warn().Err(err).Msg("failed to persist authorization")
		}
		return nil
	}

	log.Debug().Msg("incorrect pin entered")
	g.pinError = true
	g.pending.Add(1)
	time.AfterFunc(g.resetDelay, g.clearError)
	return ErrIncorrectPIN
}

func (g *Gate) clearError() {
	defer g.pending.Done()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.buffer = nil
	g.pinError = false
}

// DeleteLastDigit removes the last entered digit.
func (g *Gate) DeleteLastDigit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.authorized || len(g.buffer) == 0 {
		return
	}
	g.buffer = g.buffer[:len(g.buffer)-1]
}

// IsAuthorized reports whether the gate is open.
func (g *Gate) IsAuthorized() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authorized
}

// Entered returns how many digits are in the buffer.
func (g *Gate) Entered() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.buffer)
}

// HasError reports whether a wrong PIN is currently being shown.
func (g *Gate) HasError() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pinError
}

// Wait blocks until a pending error reset has run.
func (g *Gate) Wait() {
	g.pending.Wait()
}

// Lock closes the gate again and forgets the persisted authorization.
func (g *Gate) Lock() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authorized = false
	g.buffer = nil
	if err := g.store.SetAuthorized(false); err != nil {
		return fmt.Errorf("failed to clear authorization: %w", err)
	}
	return nil
}
