package state

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/text/unicode/norm"
)

const (
	// scryptR and scryptP are fixed; scryptN is a variable so tests can
	// lower the cost.
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32

	saltLen = 16

	hkdfInfo = "ghost-sync state seal"
)

var scryptN = 32768

// sealer encrypts secrets at rest with AES-256-GCM. The key is derived
// from the passphrase with scrypt, then expanded with HKDF-SHA256.
// Sealed format: [12-byte nonce][ciphertext+GCM tag].
type sealer struct {
	gcm cipher.AEAD
}

func newSealer(passphrase string, salt []byte) (*sealer, error) {
	key, err := scrypt.Key([]byte(norm.NFKC.String(passphrase)), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	defer zero(key)

	gcmKey := make([]byte, scryptKeyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, key, salt, []byte(hkdfInfo)), gcmKey); err != nil {
		return nil, fmt.Errorf("expanding key: %w", err)
	}
	defer zero(gcmKey)

	block, err := aes.NewCipher(gcmKey)
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	return &sealer{gcm: gcm}, nil
}

func (s *sealer) seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return s.gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *sealer) open(data []byte) ([]byte, error) {
	n := s.gcm.NonceSize()
	if len(data) < n+s.gcm.Overhead() {
		return nil, errors.New("sealed value too short")
	}

	plaintext, err := s.gcm.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("opening sealed value: %w", err)
	}

	return plaintext, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	return b, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
