// Package auth signs venue API requests with an ed25519 key.
package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Header names sent with every signed request.
const (
	HeaderAPIKey    = "x-api-key"
	HeaderSignature = "x-signature"
	HeaderTimestamp = "x-timestamp"
)

// Credentials holds the API key and private key for signing requests.
type Credentials struct {
	APIKey     string             // API key from the venue dashboard
	PrivateKey ed25519.PrivateKey // ed25519 signing key

	// now is overridable in tests.
	now func() time.Time
}

// LoadCredentials builds credentials from an API key and a base64 private key.
// The key may be either a 32-byte seed or a full 64-byte private key.
func LoadCredentials(apiKey, privateKeyB64 string) (*Credentials, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if privateKeyB64 == "" {
		return nil, fmt.Errorf("private key is required")
	}

	key, err := ParsePrivateKey(privateKeyB64)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	return &Credentials{
		APIKey:     apiKey,
		PrivateKey: key,
		now:        time.Now,
	}, nil
}

// ParsePrivateKey decodes a base64 ed25519 seed or private key.
func ParsePrivateKey(b64 string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}

// SignRequest generates authentication headers for a venue API request.
// path includes the query string; body is the exact JSON sent, or empty.
func (c *Credentials) SignRequest(method, path, body string) map[string]string {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	timestamp := strconv.FormatInt(now().Unix(), 10)

	return map[string]string{
		HeaderAPIKey:    c.APIKey,
		HeaderSignature: c.signature(timestamp, method, path, body),
		HeaderTimestamp: timestamp,
	}
}

// signature signs api_key + timestamp + path + method + body.
func (c *Credentials) signature(timestamp, method, path, body string) string {
	message := Message(c.APIKey, timestamp, method, path, body)
	sig := ed25519.Sign(c.PrivateKey, []byte(message))
	return base64.StdEncoding.EncodeToString(sig)
}

// Message builds the string that is signed for a request.
func Message(apiKey, timestamp, method, path, body string) string {
	return apiKey + timestamp + path + method + body
}
