// Package cipher implements the driven Cipher port with AES-256-GCM.
package cipher

import (
	"crypto/aes"
	gocipher "crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/ericfisherdev/keysync/internal/domain/port/driven"
)

// hkdfInfo binds derived keys to this use so the same secret never yields the
// same AES key in another context.
const hkdfInfo = "keysync credential encryption v1"

// Compile-time interface satisfaction check.
var _ driven.Cipher = (*AESGCM)(nil)

// AESGCM encrypts with AES-256-GCM under a key derived from the secret string
// with HKDF-SHA256. Ciphertexts are base64-encoded nonce || ciphertext || tag.
type AESGCM struct {
	random io.Reader
}

// NewAESGCM creates an AESGCM cipher reading nonces from crypto/rand.
func NewAESGCM() *AESGCM {
	return &AESGCM{random: rand.Reader}
}

// Encrypt seals plaintext under key and returns the base64-encoded result.
func (c *AESGCM) Encrypt(plaintext []byte, key string) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt opens a base64-encoded ciphertext produced by Encrypt. It fails if
// key differs from the encryption key or the ciphertext was modified.
func (c *AESGCM) Decrypt(encoded string, key string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize+gcm.Overhead() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("gcm.Open: %w", err)
	}
	return plaintext, nil
}

func newGCM(key string) (gocipher.AEAD, error) {
	if key == "" {
		return nil, errors.New("empty encryption key")
	}

	derived := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(key), nil, []byte(hkdfInfo)), derived); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := gocipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
