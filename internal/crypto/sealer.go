// Package crypto implements the at-rest encryption of credential tokens.
//
// Each token is sealed independently: a fresh random salt and nonce are
// generated per call, the symmetric key is derived from the master secret
// and the salt with PBKDF2-SHA256, and the result is encoded as
// base64(salt || nonce || ciphertext). Decryption fails closed on any
// integrity-tag mismatch.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	apperrors "github.com/sellerhub/backend/internal/pkg/errors"
)

const (
	saltSize   = 16
	nonceSize  = 12
	keySize    = 32 // AES-256
	iterations = 120_000
)

// Sealer encrypts and decrypts token blobs with a master secret
type Sealer struct {
	master []byte
}

// NewSealer creates a sealer from the master secret
func NewSealer(masterSecret string) (*Sealer, error) {
	if masterSecret == "" {
		return nil, fmt.Errorf("master secret must not be empty")
	}
	return &Sealer{master: []byte(masterSecret)}, nil
}

// Seal encrypts plaintext and returns the transport-safe blob encoding
func (s *Sealer) Seal(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	aead, err := s.newAEAD(salt)
	if err != nil {
		return "", err
	}

	ciphertext := aead.Seal(nil, nonce, []byte(plaintext), nil)

	blob := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	return base64.StdEncoding.EncodeToString(blob), nil
}

// Open decrypts a blob produced by Seal. A corrupted or tampered blob,
// or one sealed under different key material, yields a DecryptionError.
func (s *Sealer) Open(encoded string) (string, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", apperrors.Decryption("credential blob is not valid base64", err)
	}
	if len(blob) < saltSize+nonceSize+1 {
		return "", apperrors.Decryption("credential blob is truncated", nil)
	}

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	aead, err := s.newAEAD(salt)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", apperrors.Decryption("credential blob failed authentication", err)
	}

	return string(plaintext), nil
}

func (s *Sealer) newAEAD(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(s.master, salt, iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
