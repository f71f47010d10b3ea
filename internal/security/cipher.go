// Package security holds the credential cipher and platform token validation.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the credential cipher key length in bytes.
const KeySize = chacha20poly1305.KeySize

// ErrDecrypt is returned when a ciphertext fails authentication or is malformed.
var ErrDecrypt = errors.New("cannot decrypt credential blob")

// CredentialPair is the shared username/password payload. It exists in
// plaintext only transiently: encrypted at share time, decrypted inside
// auto-login, never persisted decrypted.
type CredentialPair struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CredentialCipher encrypts and decrypts the shared credential blob.
// Implementations must supply authenticated encryption.
type CredentialCipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// AEADCipher implements CredentialCipher with ChaCha20-Poly1305.
// Ciphertext is base64(nonce || sealed).
type AEADCipher struct {
	key []byte
}

// NewAEADCipher returns an AEADCipher for the given 32-byte key.
func NewAEADCipher(key []byte) (*AEADCipher, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &AEADCipher{key: k}, nil
}

// Encrypt seals the plaintext with a fresh random nonce.
func (c *AEADCipher) Encrypt(plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens the ciphertext. Returns ErrDecrypt for malformed or tampered input.
func (c *AEADCipher) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrDecrypt
	}
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, err
	}
	if len(raw) < aead.NonceSize() {
		return nil, ErrDecrypt
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

// SealCredentials marshals and encrypts the pair.
func SealCredentials(c CredentialCipher, pair CredentialPair) (string, error) {
	raw, err := json.Marshal(pair)
	if err != nil {
		return "", err
	}
	return c.Encrypt(raw)
}

// OpenCredentials decrypts and unmarshals the pair.
func OpenCredentials(c CredentialCipher, ciphertext string) (CredentialPair, error) {
	raw, err := c.Decrypt(ciphertext)
	if err != nil {
		return CredentialPair{}, err
	}
	var pair CredentialPair
	if err := json.Unmarshal(raw, &pair); err != nil {
		return CredentialPair{}, ErrDecrypt
	}
	return pair, nil
}

// GenerateCredentialKey returns a fresh random cipher key, base64-encoded.
// Intended for provisioning (e.g. generating CREDENTIAL_KEY for a new deploy).
func GenerateCredentialKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
