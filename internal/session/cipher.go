package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"readmegen/internal/config"
	"readmegen/internal/models"
)

const sealedPrefix = "gcm:"

var errInvalidCiphertext = errors.New("invalid session ciphertext")

// Cipher seals serialized state with AES-GCM.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipherFromEnv reads the key from READMEGEN_STATE_KEY. It returns nil when
// the variable is unset so state is stored in the clear.
func NewCipherFromEnv() (*Cipher, error) {
	raw := strings.TrimSpace(os.Getenv(config.StateKeyEnv))
	if raw == "" {
		return nil, nil
	}
	key, err := decodeKey(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", config.StateKeyEnv, err)
	}
	return NewCipher(key)
}

func NewCipher(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

func decodeKey(raw string) ([]byte, error) {
	if len(raw) == 32 {
		return []byte(raw), nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("invalid key length %d, want 32", len(key))
	}
	return key, nil
}

func (c *Cipher) Encrypt(plain []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	buf := c.aead.Seal(nonce, nonce, plain, nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(buf), nil
}

func (c *Cipher) Decrypt(input string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(input, sealedPrefix))
	if err != nil {
		return nil, errInvalidCiphertext
	}
	ns := c.aead.NonceSize()
	if len(data) < ns {
		return nil, errInvalidCiphertext
	}
	plain, err := c.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return nil, errInvalidCiphertext
	}
	return plain, nil
}

// encodeState serializes state as JSON, sealed when c is non-nil.
func encodeState(c *Cipher, state *models.SessionState) (string, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if c == nil {
		return string(raw), nil
	}
	return c.Encrypt(raw)
}

// decodeState accepts sealed and plain payloads so enabling a key keeps old rows readable.
func decodeState(c *Cipher, payload string) (*models.SessionState, error) {
	raw := []byte(payload)
	if strings.HasPrefix(payload, sealedPrefix) {
		if c == nil {
			return nil, fmt.Errorf("session is sealed but %s is not set", config.StateKeyEnv)
		}
		plain, err := c.Decrypt(payload)
		if err != nil {
			return nil, err
		}
		raw = plain
	}
	var state models.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &state, nil
}
