// Package crypto encrypts and decrypts configuration secrets.
//
// Secrets (bot tokens, webhook URLs, API keys) may be stored in the config
// file as "enc:<base64>" values produced by `quizwatch encrypt`. They are
// decrypted at load time with a key derived from a passphrase.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	iterations = 100000
	keySize    = 32 // AES-256

	// Prefix marks an encrypted config value
	Prefix = "enc:"
)

var (
	// ErrNoKey is returned when an encrypted value is found but no passphrase was configured
	ErrNoKey = errors.New("encrypted value found but no secret key configured")
	// ErrDecrypt is returned when a value cannot be decrypted with the configured key
	ErrDecrypt = errors.New("decryption failed")
)

// Encryptor handles encryption and decryption of sensitive data
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor with the given passphrase
func NewEncryptor(passphrase string) *Encryptor {
	if passphrase == "" {
		return nil
	}

	// The salt is derived from the passphrase so a config file stays
	// decryptable with nothing but the passphrase.
	salt := sha256.Sum256([]byte(passphrase + "quizwatch-salt"))

	key := pbkdf2.Key([]byte(passphrase), salt[:], iterations, keySize, sha256.New)

	return &Encryptor{key: key}
}

// Encrypt encrypts plaintext using AES-GCM
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if e == nil || e.key == nil {
		return "", ErrNoKey
	}

	if plaintext == "" {
		return "", nil
	}

	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt decrypts ciphertext using AES-GCM
func (e *Encryptor) Decrypt(ciphertext string) (string, error) {
	if e == nil || e.key == nil {
		return "", ErrNoKey
	}

	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base64: %v", ErrDecrypt, err)
	}

	gcm, err := e.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecrypt)
	}

	nonce, cipherData := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, cipherData, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}

	return string(plaintext), nil
}

func (e *Encryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal encrypts a value and adds the "enc:" prefix
func (e *Encryptor) Seal(plaintext string) (string, error) {
	ct, err := e.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return Prefix + ct, nil
}

// IsEncrypted reports whether a config value carries the "enc:" prefix
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

// Reveal returns value unchanged unless it carries the "enc:" prefix, in
// which case it is decrypted. A nil encryptor with an encrypted value is an error.
func (e *Encryptor) Reveal(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	return e.Decrypt(strings.TrimPrefix(value, Prefix))
}
