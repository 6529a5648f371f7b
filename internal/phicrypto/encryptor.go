package phicrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// Encryptor provides AES-256-GCM field-level encryption for PHI values.
// Ciphertexts are base64 with the nonce prepended, so each value is
// self-contained and safe to store in a text column.
type Encryptor struct {
	aead cipher.AEAD
}

// keySize is the AES-256 key length.
const keySize = 32

// NormalizeKey coerces a configured key string to exactly 32 bytes. Shorter
// keys are left-padded with zero bytes, longer keys are truncated.
func NormalizeKey(key string) []byte {
	raw := []byte(key)
	if len(raw) >= keySize {
		return raw[:keySize]
	}
	padded := make([]byte, keySize)
	copy(padded[keySize-len(raw):], raw)
	return padded
}

// New creates an Encryptor from the configured key string.
func New(key string) (*Encryptor, error) {
	if key == "" {
		return nil, fmt.Errorf("phicrypto: encryption key is not configured")
	}
	block, err := aes.NewCipher(NormalizeKey(key))
	if err != nil {
		return nil, fmt.Errorf("phicrypto: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("phicrypto: create GCM: %w", err)
	}
	return &Encryptor{aead: aead}, nil
}

// Encrypt encrypts the plaintext and returns base64(nonce || ciphertext).
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("phicrypto: generate nonce: %w", err)
	}
	// Seal appends the ciphertext to nonce, so the result is nonce + ciphertext.
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt decodes the base64 value, splits off the nonce, and decrypts.
func (e *Encryptor) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("phicrypto: base64 decode: %w", err)
	}
	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("phicrypto: ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("phicrypto: decrypt: %w", err)
	}
	return string(plaintext), nil
}
