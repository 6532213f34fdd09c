// Package auth implements the optional password handshake of the feed API
// and the encrypted framing used once it succeeds.
package auth

import (
	"crypto/pbkdf2"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	AutoGenKeyLength = 16
	Base62Chars      = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	PBKDF2Iterations = 100000
	PBKDF2Salt       = "ds4dsu-key-v1"

	sessionContext = "ds4dsu-session-v1"
)

var ErrEmptyPassword = errors.New("password cannot be empty")

// GenerateKey creates a random 16-char base62 key
func GenerateKey() (string, error) {
	randomBytes := make([]byte, AutoGenKeyLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}

	key := make([]byte, AutoGenKeyLength)
	for i, b := range randomBytes {
		key[i] = Base62Chars[int(b)%62]
	}
	return string(key), nil
}

// DeriveKey stretches a password to a 32-byte key with PBKDF2-SHA256.
func DeriveKey(password string) ([]byte, error) {
	if password == "" {
		return nil, ErrEmptyPassword
	}
	return pbkdf2.Key(sha256.New, password, []byte(PBKDF2Salt), PBKDF2Iterations, 32)
}

// DeriveSessionKey mixes the long-term key with both handshake nonces.
func DeriveSessionKey(key, serverNonce, clientNonce []byte) []byte {
	h := sha256.New()
	h.Write(key)
	h.Write(serverNonce)
	h.Write(clientNonce)
	h.Write([]byte(sessionContext))
	return h.Sum(nil)
}

// LoadOrCreateKeyFile returns the password stored at path. When the file does
// not exist a new key is generated and written with 0600 permissions;
// created reports that case.
func LoadOrCreateKeyFile(path string) (password string, created bool, err error) {
	b, err := os.ReadFile(path)
	if err == nil {
		password = strings.TrimSpace(string(b))
		if password == "" {
			return "", false, fmt.Errorf("key file %s: %w", path, ErrEmptyPassword)
		}
		return password, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("read key file: %w", err)
	}

	password, err = GenerateKey()
	if err != nil {
		return "", false, fmt.Errorf("generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", false, fmt.Errorf("create key file dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(password), 0o600); err != nil {
		return "", false, fmt.Errorf("write key file: %w", err)
	}
	return password, true, nil
}
