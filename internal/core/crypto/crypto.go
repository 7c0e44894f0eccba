// Package crypto seals secrets such as API keys for storage in config.yml.
//
// A sealed value is "enc:" followed by base64(salt | nonce | AES-256-GCM
// ciphertext), with the key derived from a passphrase by PBKDF2-SHA256.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Prefix marks a sealed value
	Prefix = "enc:"

	SaltSize  = 16
	NonceSize = 12
	KeySize   = 32

	PBKDF2Iterations = 100000

	// MinPassphrase is the shortest accepted passphrase
	MinPassphrase = 4
)

var (
	ErrShortPassphrase  = fmt.Errorf("passphrase must be at least %d characters", MinPassphrase)
	ErrDecryptionFailed = errors.New("decryption failed: wrong passphrase or corrupted data")
	ErrInvalidData      = errors.New("invalid sealed value")
)

// IsSealed reports whether s was produced by Seal.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, Prefix)
}

func validatePassphrase(p string) error {
	if len([]rune(p)) < MinPassphrase {
		return ErrShortPassphrase
	}
	return nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, KeySize, sha256.New)
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext with passphrase.
func Seal(plaintext, passphrase string) (string, error) {
	if err := validatePassphrase(passphrase); err != nil {
		return "", err
	}

	buf := make([]byte, SaltSize+NonceSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	salt, nonce := buf[:SaltSize], buf[SaltSize:]

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	sealed := gcm.Seal(buf, nonce, []byte(plaintext), nil)
	return Prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal. Values without the prefix are
// returned unchanged.
func Open(value, passphrase string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	if err := validatePassphrase(passphrase); err != nil {
		return "", err
	}

	combined, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", ErrInvalidData
	}
	// salt + nonce + at least the 16-byte GCM tag
	if len(combined) < SaltSize+NonceSize+16 {
		return "", ErrInvalidData
	}

	salt := combined[:SaltSize]
	nonce := combined[SaltSize : SaltSize+NonceSize]
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, combined[SaltSize+NonceSize:], nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}
