package api

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"os"
	"sync"
)

// Authentication errors
var (
	ErrAuthRequired      = errors.New("authentication required")
	ErrAuthTokenInvalid  = errors.New("invalid auth token format")
	ErrAuthTokenMismatch = errors.New("auth token mismatch")
)

// AuthConfig holds authentication configuration for the convert service.
type AuthConfig struct {
	// Enabled determines if connections must authenticate before
	// submitting conversion requests
	Enabled bool
	// Token is the shared secret clients present in the handshake
	Token string
}

// Authenticator gates conversion connections behind a shared token.
type Authenticator struct {
	config AuthConfig
	mu     sync.RWMutex
}

// NewAuthenticator creates a new Authenticator with the given config.
func NewAuthenticator(config AuthConfig) *Authenticator {
	return &Authenticator{
		config: config,
	}
}

// NewAuthenticatorFromEnv builds an Authenticator from RB_AUTH_ENABLED
// and RB_AUTH_TOKEN. When auth is enabled without a configured token, a
// random one is generated; the operator reads it back via GetToken.
func NewAuthenticatorFromEnv() *Authenticator {
	enabled := os.Getenv("RB_AUTH_ENABLED") == "true" || os.Getenv("RB_AUTH_ENABLED") == "1"
	token := os.Getenv("RB_AUTH_TOKEN")

	if enabled && token == "" {
		token = GenerateToken()
	}

	return NewAuthenticator(AuthConfig{
		Enabled: enabled,
		Token:   token,
	})
}

// IsEnabled returns true if authentication is enabled.
func (a *Authenticator) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config.Enabled
}

// GetToken returns the current auth token (for displaying to admin).
func (a *Authenticator) GetToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config.Token
}

// ValidateToken checks a presented token against the configured one in
// constant time. With auth disabled every token passes.
func (a *Authenticator) ValidateToken(providedToken string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.config.Enabled {
		return nil
	}

	if providedToken == "" {
		return ErrAuthRequired
	}

	if subtle.ConstantTimeCompare([]byte(a.config.Token), []byte(providedToken)) != 1 {
		return ErrAuthTokenMismatch
	}

	return nil
}

// GenerateToken generates a 256-bit random token, hex encoded.
func GenerateToken() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// Usable placeholder when the entropy source fails
		return "rowbridge-default-token-change-me"
	}
	return hex.EncodeToString(bytes)
}

// AuthMessage is the handshake a client sends as the first frame on a
// convert connection when auth is enabled. Conversion requests are only
// accepted after a successful handshake.
type AuthMessage struct {
	Type  string `json:"type"`  // Must be "auth"
	Token string `json:"token"` // The authentication token
}

// AuthResponse answers the handshake. On failure the connection is closed.
type AuthResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
