package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

const (
	// DefaultKeyPrefix marks externally visible API keys. Decoding accepts
	// unprefixed keys as well, so relabeled or pre-prefix deployments keep
	// working.
	DefaultKeyPrefix = "palisade_"
	// PublicIDLength is the number of characters in a key's public
	// identifier, the segment used for repository lookup.
	PublicIDLength = 8
	// SecretLength is the number of characters in a key's secret segment.
	SecretLength = 32
)

// keyAlphabet is URL-safe so keys survive copy/paste into headers, query
// strings and shell commands.
const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrMalformedKey is returned by Decode for any key that cannot be split
// into the expected segments.
var ErrMalformedKey = errors.New("malformed api key")

// GeneratedKey is the one-time plaintext view of a freshly minted key. The
// secret is never persisted and never recoverable after this value is
// dropped.
type GeneratedKey struct {
	PublicID string
	Secret   string
	prefix   string
}

// String renders the full externally visible key.
func (k GeneratedKey) String() string {
	return k.prefix + k.PublicID + k.Secret
}

// SecretHash returns the digest persisted in place of the secret.
func (k GeneratedKey) SecretHash() string {
	return HashSecret(k.Secret)
}

// DecodedKey is the parsed form of an inbound key. For legacy keys the
// public identifier is empty and SecretHash covers the whole remainder
// after the prefix.
type DecodedKey struct {
	PublicID   string
	Secret     string
	SecretHash string
	Legacy     bool
}

// APIKeyCodec generates and parses API keys of the form
// prefix || publicID || secret. The zero value is not usable; construct
// with NewAPIKeyCodec.
type APIKeyCodec struct {
	prefix        string
	requirePrefix bool
}

// CodecOption customises codec behaviour.
type CodecOption func(*APIKeyCodec)

// WithRequiredPrefix makes Decode reject keys that do not carry the
// configured prefix instead of accepting them bare.
func WithRequiredPrefix() CodecOption {
	return func(c *APIKeyCodec) {
		c.requirePrefix = true
	}
}

// NewAPIKeyCodec builds a codec for the given prefix. An empty prefix
// falls back to DefaultKeyPrefix.
func NewAPIKeyCodec(prefix string, opts ...CodecOption) *APIKeyCodec {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	c := &APIKeyCodec{prefix: prefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Prefix returns the prefix this codec stamps onto generated keys.
func (c *APIKeyCodec) Prefix() string {
	return c.prefix
}

// Generate mints a new key from crypto/rand. The returned value is the
// only copy of the secret.
func (c *APIKeyCodec) Generate() (GeneratedKey, error) {
	publicID, err := randomString(PublicIDLength)
	if err != nil {
		return GeneratedKey{}, fmt.Errorf("generate public id: %w", err)
	}
	secret, err := randomString(SecretLength)
	if err != nil {
		return GeneratedKey{}, fmt.Errorf("generate secret: %w", err)
	}
	return GeneratedKey{PublicID: publicID, Secret: secret, prefix: c.prefix}, nil
}

// Decode splits a raw inbound key into its segments and computes the
// digest used for repository comparison. Keys whose remainder (after the
// optional prefix) is exactly SecretLength characters are legacy keys:
// they carry no public identifier and are matched by digest alone. Any
// other length is malformed.
func (c *APIKeyCodec) Decode(rawKey string) (DecodedKey, error) {
	rest, hadPrefix := strings.CutPrefix(rawKey, c.prefix)
	if c.requirePrefix && !hadPrefix {
		return DecodedKey{}, ErrMalformedKey
	}

	switch len(rest) {
	case PublicIDLength + SecretLength:
		secret := rest[PublicIDLength:]
		return DecodedKey{
			PublicID:   rest[:PublicIDLength],
			Secret:     secret,
			SecretHash: HashSecret(secret),
		}, nil
	case SecretLength:
		return DecodedKey{
			Secret:     rest,
			SecretHash: HashSecret(rest),
			Legacy:     true,
		}, nil
	default:
		return DecodedKey{}, ErrMalformedKey
	}
}

// HashSecret computes the hex-encoded SHA3-256 digest stored in place of
// an API key secret.
func HashSecret(secret string) string {
	sum := sha3.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// DigestMatches compares a computed digest against the stored one in
// constant time.
func DigestMatches(computed, stored string) bool {
	return SecureCompare(computed, stored)
}

// randomString draws length characters from keyAlphabet using rejection-free
// uniform sampling.
func randomString(length int) (string, error) {
	max := big.NewInt(int64(len(keyAlphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(keyAlphabet[n.Int64()])
	}
	return b.String(), nil
}
