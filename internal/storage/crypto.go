package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// keySalt is fixed so the same passphrase always opens the same database.
var keySalt = []byte("vendepro/storage/v1")

// ErrSealedValue is returned when a stored value does not open with the
// configured key for its entry.
var ErrSealedValue = errors.New("sealed value cannot be opened")

// DeriveKey stretches a passphrase into a 32-byte AES key with argon2id.
func DeriveKey(passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}
	return argon2.IDKey([]byte(passphrase), keySalt, 1, 64*1024, 4, 32), nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid storage key: %w", err)
	}
	return cipher.NewGCM(block)
}

// sealValue stores data as is without a key. With one, the value is
// base64(nonce || AES-GCM output) and entry is bound in as associated data.
func sealValue(entry string, data, key []byte) (string, error) {
	if len(key) == 0 {
		return string(data), nil
	}
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(data)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	return base64.RawStdEncoding.EncodeToString(aead.Seal(nonce, nonce, data, []byte(entry))), nil
}

// openValue reverses sealValue for the same entry and key.
func openValue(entry, value string, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return []byte(value), nil
	}
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	raw, err := base64.RawStdEncoding.DecodeString(value)
	if err != nil || len(raw) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrSealedValue
	}
	n := aead.NonceSize()
	data, err := aead.Open(nil, raw[:n], raw[n:], []byte(entry))
	if err != nil {
		return nil, ErrSealedValue
	}
	return data, nil
}
