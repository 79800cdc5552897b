package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// sealedPrefix marks values written by Encrypt; the number is the key derivation version.
const sealedPrefix = "v1:"

var (
	ErrNotInitialized = errors.New("encryption key not initialized")
	ErrMalformed      = errors.New("malformed sealed value")
)

var (
	mu  sync.RWMutex
	aed cipher.AEAD
)

// InitializeEncryption derives the AES-256 key from secret. An empty secret disables encryption.
func InitializeEncryption(secret string) error {
	mu.Lock()
	defer mu.Unlock()
	if secret == "" {
		aed = nil
		return nil
	}
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return errors.Wrap(err, "create cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return errors.Wrap(err, "create GCM")
	}
	aed = gcm
	return nil
}

func current() (cipher.AEAD, error) {
	mu.RLock()
	defer mu.RUnlock()
	if aed == nil {
		return nil, ErrNotInitialized
	}
	return aed, nil
}

// Enabled reports whether a key has been initialized.
func Enabled() bool {
	_, err := current()
	return err == nil
}

// Encrypt seals plaintext with AES-GCM under a random nonce.
func Encrypt(plaintext string) (string, error) {
	gcm, err := current()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "read nonce")
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func Decrypt(encrypted string) (string, error) {
	gcm, err := current()
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(encrypted, sealedPrefix) {
		return "", ErrMalformed
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(encrypted, sealedPrefix))
	if err != nil {
		return "", errors.Wrap(ErrMalformed, err.Error())
	}
	if len(data) < gcm.NonceSize() {
		return "", errors.Wrap(ErrMalformed, "ciphertext too short")
	}

	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", errors.Wrap(err, "open sealed value")
	}
	return string(plaintext), nil
}

// IsEncrypted reports whether value carries the sealed prefix.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}

// Mask hides all but the last four characters of a secret for display.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
