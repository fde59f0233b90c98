package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

// MinSecretLength is the shortest secret DeriveSealer accepts.
const MinSecretLength = 16

// Sealer encrypts free text at rest and derives stable pseudonyms
type Sealer struct {
	encryptionKey []byte // AES-256
	blindIndexKey []byte // HMAC-SHA256
}

// NewSealer creates a sealer from two 32 byte keys
func NewSealer(encryptionKey, blindIndexKey []byte) (*Sealer, error) {
	if len(encryptionKey) != keySize {
		return nil, errors.New("encryption key must be 32 bytes")
	}
	if len(blindIndexKey) != keySize {
		return nil, errors.New("blind index key must be 32 bytes")
	}
	return &Sealer{
		encryptionKey: encryptionKey,
		blindIndexKey: blindIndexKey,
	}, nil
}

// DeriveSealer expands a single configured secret into both keys with HKDF
func DeriveSealer(secret string) (*Sealer, error) {
	if len(secret) < MinSecretLength {
		return nil, errors.New("encryption secret must be at least 16 characters")
	}
	r := hkdf.New(sha256.New, []byte(secret), []byte("glowra"), []byte("sealer v1"))
	keys := make([]byte, 2*keySize)
	if _, err := io.ReadFull(r, keys); err != nil {
		return nil, err
	}
	return NewSealer(keys[:keySize], keys[keySize:])
}

// Seal encrypts plaintext using AES-256-GCM
// Returns base64-encoded ciphertext with nonce prepended
func (s *Sealer) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := s.gcm()
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

// Open decrypts a value produced by Seal
func (s *Sealer) Open(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, cipherBytes := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, cipherBytes, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

func (s *Sealer) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Pseudonym returns a deterministic keyed hash of v, used where a stable
// identifier is needed without revealing the value itself.
func (s *Sealer) Pseudonym(v string) string {
	if v == "" {
		return ""
	}

	h := hmac.New(sha256.New, s.blindIndexKey)
	h.Write([]byte(v))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
