package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// signingKeySize is the minimum HMAC key size in bytes. 32 matches the
// HS256 block recommendation.
const signingKeySize = 32

// LoadOrGenerateSigningKey loads the hex-encoded token signing key from
// keyPath, or generates and saves a new one if the file does not exist.
// An empty keyPath generates an ephemeral key each call, which means
// issued tokens do not survive a process restart (acceptable for dev).
func LoadOrGenerateSigningKey(keyPath string) ([]byte, error) {
	if keyPath == "" {
		return randomSigningKey()
	}

	keyData, err := os.ReadFile(keyPath)
	if err == nil {
		key, derr := hex.DecodeString(strings.TrimSpace(string(keyData)))
		if derr != nil {
			return nil, fmt.Errorf("parse signing key: %w", derr)
		}
		if len(key) < signingKeySize {
			return nil, fmt.Errorf("signing key too short: %d bytes", len(key))
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read signing key file: %w", err)
	}

	key, err := randomSigningKey()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)), 0600); err != nil {
		return nil, fmt.Errorf("save signing key to disk: %w", err)
	}
	return key, nil
}

func randomSigningKey() ([]byte, error) {
	key := make([]byte, signingKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return key, nil
}
