// Package cryptox implements the symmetric encryption used for stored
// secrets and the sync endpoint password, plus management of the key file
// backing it.
//
// The format is ChaCha20-Poly1305 with the 12-byte nonce prepended to the
// ciphertext, the whole thing base64 (standard) encoded. The 32-byte key
// lives in a file named private.key inside the configured key directory and
// is generated on first use.
package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
)

const KeyFileName = "private.key"

var ErrCiphertextTooShort = errors.New("ciphertext shorter than nonce")

// Cipher encrypts and decrypts strings with a single device-local key.
type Cipher struct {
	key []byte
}

// NewCipher loads the key from keyDir, creating the directory and a fresh
// random key on first use.
func NewCipher(keyDir string) (*Cipher, error) {
	key, err := loadOrCreateKey(keyDir)
	if err != nil {
		return nil, err
	}
	return &Cipher{key: key}, nil
}

// NewCipherWithKey wraps an existing 32-byte key. Used by tests and by
// callers that manage key material themselves.
func NewCipherWithKey(key []byte) (*Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid key size: %d", len(key))
	}
	return &Cipher{key: key}, nil
}

// EncryptString seals plaintext and returns base64(nonce || ciphertext).
func (c *Cipher) EncryptString(plaintext string) (string, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptString reverses EncryptString.
func (c *Cipher) DecryptString(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", err
	}

	if len(raw) < aead.NonceSize() {
		return "", ErrCiphertextTooShort
	}

	nonce, ciphertext := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}

	return string(plaintext), nil
}

func loadOrCreateKey(keyDir string) ([]byte, error) {
	if err := os.MkdirAll(keyDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	keyPath := filepath.Join(keyDir, KeyFileName)

	key, err := os.ReadFile(keyPath)
	if err == nil {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("key file %s has invalid size %d", keyPath, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}

	return key, nil
}
