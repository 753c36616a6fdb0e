// Package encryption seals provider credentials before they are written to
// the settings table.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sealPrefix tags sealed values so a future key format can coexist.
const sealPrefix = "v1:"

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// ErrNotSealed is returned by Open for values that were not produced by Seal.
var ErrNotSealed = errors.New("value is not sealed")

// Sealer provides AES-256-GCM sealing of short secrets.
type Sealer struct {
	aead cipher.AEAD
}

// GenerateKey returns a new random key, base64-encoded.
func GenerateKey() (string, error) {
	b := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("generating encryption key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// ParseKey decodes a base64 key. A raw 32-character string is accepted too,
// which keeps test fixtures readable.
func ParseKey(key string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err == nil && len(decoded) == KeySize {
		return decoded, nil
	}
	if len(key) == KeySize {
		return []byte(key), nil
	}
	return nil, fmt.Errorf("encryption key must be %d bytes (base64 or raw)", KeySize)
}

// New creates a Sealer from a key accepted by ParseKey.
func New(key string) (*Sealer, error) {
	raw, err := ParseKey(key)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// NewEphemeral creates a Sealer with a random key that is never persisted.
func NewEphemeral() (*Sealer, error) {
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	return New(key)
}

// Seal encrypts plaintext and returns a prefixed base64 string.
func (s *Sealer) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(sealed string) (string, error) {
	enc, ok := strings.CutPrefix(sealed, sealPrefix)
	if !ok {
		return "", ErrNotSealed
	}
	data, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", fmt.Errorf("decoding sealed value: %w", err)
	}
	n := s.aead.NonceSize()
	if len(data) < n {
		return "", errors.New("sealed value too short")
	}
	plain, err := s.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return "", fmt.Errorf("opening sealed value: %w", err)
	}
	return string(plain), nil
}
