package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize       = 16
	pbkdf2Iters    = 100_000
	encodedVersion = "v1"
)

// Cipher encrypts and decrypts credential blobs with a key derived
// from a master secret. Output format: v1:<base64 salt>:<base64 nonce+ciphertext>.
type Cipher struct {
	masterKey []byte
}

// NewCipher creates a Cipher from a master secret
func NewCipher(masterSecret string) (*Cipher, error) {
	if masterSecret == "" {
		return nil, fmt.Errorf("master secret must not be empty")
	}
	return &Cipher{masterKey: []byte(masterSecret)}, nil
}

func (c *Cipher) deriveKey(salt []byte) []byte {
	return pbkdf2.Key(c.masterKey, salt, pbkdf2Iters, chacha20poly1305.KeySize, sha256.New)
}

// Encrypt encrypts plaintext and returns the encoded blob
func (c *Cipher) Encrypt(plaintext []byte) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.deriveKey(salt))
	if err != nil {
		return "", fmt.Errorf("creating cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)

	return fmt.Sprintf("%s:%s:%s",
		encodedVersion,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(sealed),
	), nil
}

// Decrypt decodes and decrypts a blob produced by Encrypt
func (c *Cipher) Decrypt(blob string) ([]byte, error) {
	parts := strings.SplitN(blob, ":", 3)
	if len(parts) != 3 || parts[0] != encodedVersion {
		return nil, fmt.Errorf("malformed credential blob")
	}

	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decoding salt: %w", err)
	}

	sealed, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}

	aead, err := chacha20poly1305.NewX(c.deriveKey(salt))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	return plaintext, nil
}
