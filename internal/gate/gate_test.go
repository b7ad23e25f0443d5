package gate

import (
	"errors"
	"testing"
	"time"

	"github.com/raine/vendepro/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(t *testing.T, store storage.SessionStore) *Gate {
	t.Helper()
	hash, err := HashPIN("1234")
	require.NoError(t, err)
	return New(store, hash, WithResetDelay(10*time.Millisecond))
}

func enter(g *Gate, pin string) error {
	var err error
	for _, c := range pin {
		err = g.SubmitDigit(int(c - '0'))
	}
	return err
}

func TestGate_CorrectPINAuthorizesAndPersists(t *testing.T) {
	store := storage.NewMemoryStore()
	g := newTestGate(t, store)
	require.False(t, g.IsAuthorized())

	require.NoError(t, enter(g, "1234"))
	assert.True(t, g.IsAuthorized())
	assert.Equal(t, 0, g.Entered())

	persisted, err := store.IsAuthorized()
	require.NoError(t, err)
	assert.True(t, persisted)
}

func TestGate_PersistedFlagSkipsGate(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.SetAuthorized(true))

	g := newTestGate(t, store)
	assert.True(t, g.IsAuthorized())
}

func TestGate_IncorrectPINResetsBuffer(t *testing.T) {
	store := storage.NewMemoryStore()
	g := newTestGate(t, store)

	err := enter(g, "9999")
	assert.ErrorIs(t, err, ErrIncorrectPIN)
	assert.False(t, g.IsAuthorized())
	assert.True(t, g.HasError())
	assert.Equal(t, PINLength, g.Entered())

	// Input is frozen while the error shows
	require.NoError(t, g.SubmitDigit(1))
	assert.Equal(t, PINLength, g.Entered())

	g.Wait()
	assert.False(t, g.HasError())
	assert.Equal(t, 0, g.Entered())

	persisted, err := store.IsAuthorized()
	require.NoError(t, err)
	assert.False(t, persisted)
}

func TestGate_UnlimitedRetries(t *testing.T) {
	g := newTestGate(t, storage.NewMemoryStore())
	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, enter(g, "0000"), ErrIncorrectPIN)
		g.Wait()
	}
	require.NoError(t, enter(g, "1234"))
	assert.True(t, g.IsAuthorized())
}

func TestGate_DeleteLastDigit(t *testing.T) {
	g := newTestGate(t, storage.NewMemoryStore())
	require.NoError(t, enter(g, "12"))
	g.DeleteLastDigit()
	assert.Equal(t, 1, g.Entered())
	g.DeleteLastDigit()
	g.DeleteLastDigit()
	assert.Equal(t, 0, g.Entered())

	require.NoError(t, enter(g, "129"))
	g.DeleteLastDigit()
	require.NoError(t, enter(g, "34"))
	assert.True(t, g.IsAuthorized())
}

func TestGate_InvalidDigit(t *testing.T) {
	g := newTestGate(t, storage.NewMemoryStore())
	assert.ErrorIs(t, g.SubmitDigit(10), ErrInvalidDigit)
	assert.ErrorIs(t, g.SubmitDigit(-1), ErrInvalidDigit)
	assert.Equal(t, 0, g.Entered())
}

func TestGate_IgnoresInputWhenAuthorized(t *testing.T) {
	g := newTestGate(t, storage.NewMemoryStore())
	require.NoError(t, enter(g, "1234"))
	require.NoError(t, g.SubmitDigit(5))
	assert.Equal(t, 0, g.Entered())
}

func TestGate_Lock(t *testing.T) {
	store := storage.NewMemoryStore()
	g := newTestGate(t, store)
	require.NoError(t, enter(g, "1234"))
	require.NoError(t, g.Lock())
	assert.False(t, g.IsAuthorized())

	persisted, err := store.IsAuthorized()
	require.NoError(t, err)
	assert.False(t, persisted)
}

func TestHashPIN(t *testing.T) {
	_, err := HashPIN("12a4")
	assert.ErrorIs(t, err, ErrInvalidPIN)
	_, err = HashPIN("12345")
	assert.ErrorIs(t, err, ErrInvalidPIN)
	assert.True(t, ValidPIN("0000"))
}

type readOnlyStore struct {
	*storage.MemoryStore
}

func (readOnlyStore) SetAuthorized(bool) error {
	return errors.New("database is locked")
}

func TestGate_PersistFailureStillUnlocks(t *testing.T) {
	store := readOnlyStore{storage.NewMemoryStore()}
	g := newTestGate(t, store)

	require.NoError(t, enter(g, "1234"))
	assert.True(t, g.IsAuthorized())

	persisted, err := store.IsAuthorized()
	require.NoError(t, err)
	assert.False(t, persisted)
}
