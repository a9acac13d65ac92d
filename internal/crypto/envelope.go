package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// KeySize is the AES-256 key length the envelope consumes.
	KeySize = 32
	// NonceSize is the GCM nonce length generated per Seal call.
	NonceSize = 12
)

var (
	ErrInvalidKey = errors.New("envelope key must be 32 bytes")
	ErrDecryption = errors.New("payload decryption failed")
)

// Seal encrypts plaintext with AES-256-GCM under the given key. A fresh
// random nonce is generated on every call and returned alongside the
// ciphertext; the two must always be persisted together.
func Seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generating nonce: %w", err)
	}

	return aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open decrypts an envelope sealed by Seal. It fails closed: any tag
// verification failure returns ErrDecryption and never partial plaintext.
func Open(ciphertext, nonce, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	if len(nonce) != aead.NonceSize() {
		return nil, ErrDecryption
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}

	return plaintext, nil
}

// GenerateKey returns a new random envelope key, base64 encoded for
// transport through configuration.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generating envelope key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// DecodeKey parses a base64-encoded envelope key and validates its length.
func DecodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding envelope key: %w", err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
