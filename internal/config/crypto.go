// internal/config/crypto.go
package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/99designs/keyring"
	"github.com/pkg/errors"
)

const masterKeyName = "__master_key__"

// ErrCiphertextTooShort is returned when a stored password is truncated
var ErrCiphertextTooShort = errors.New("ciphertext too short")

type secretStore interface {
	Get(key string) (string, error)
	Set(key, secret string) error
}

// GetMasterKey retrieves or generates the master key kept in the keyring
func GetMasterKey() ([]byte, error) {
	ks, err := NewKeyringStore()
	if err != nil {
		return nil, err
	}
	return masterKeyFrom(ks)
}

// masterKeyFrom only generates a new key when none is stored. Any other
// keyring failure is returned so an existing key is never overwritten.
func masterKeyFrom(ks secretStore) ([]byte, error) {
	keyHex, err := ks.Get(masterKeyName)
	if err == nil {
		key, err := hex.DecodeString(keyHex)
		return key, errors.Wrap(err, "decode master key")
	}
	if !errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, errors.Wrap(err, "read master key")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, errors.Wrap(err, "generate master key")
	}
	if err := ks.Set(masterKeyName, hex.EncodeToString(key)); err != nil {
		return nil, errors.Wrap(err, "store master key")
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encrypt seals plainText with AES-GCM and returns nonce||ciphertext as hex
func Encrypt(plainText string, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	return hex.EncodeToString(gcm.Seal(nonce, nonce, []byte(plainText), nil)), nil
}

// Decrypt opens a hex string produced by Encrypt
func Decrypt(cipherTextHex string, key []byte) (string, error) {
	cipherText, err := hex.DecodeString(cipherTextHex)
	if err != nil {
		return "", errors.Wrap(err, "decode ciphertext")
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(cipherText) < nonceSize {
		return "", ErrCiphertextTooShort
	}

	plainText, err := gcm.Open(nil, cipherText[:nonceSize], cipherText[nonceSize:], nil)
	if err != nil {
		return "", errors.Wrap(err, "open ciphertext")
	}
	return string(plainText), nil
}
