package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "photofeed-client"
	keyringKey     = "bearerToken"
)

// ErrNoToken is returned when no token has been stored yet.
var ErrNoToken = errors.New("no token stored")

// TokenStore persists a single opaque bearer token. Implementations
// make no assumptions about the token's shape.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
	Clear() error
}

// KeyringStore stores the token in the operating system's secure
// credential store under a fixed service and key name.
type KeyringStore struct{}

// NewKeyringStore creates a keyring-backed token store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// Token returns the stored token, or ErrNoToken if none is stored.
func (s *KeyringStore) Token() (string, error) {
	token, err := keyring.Get(keyringService, keyringKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to read token from keyring: %w", err)
	}
	return token, nil
}

// SetToken stores the token, replacing any previous value.
func (s *KeyringStore) SetToken(token string) error {
	if err := keyring.Set(keyringService, keyringKey, token); err != nil {
		return fmt.Errorf("failed to write token to keyring: %w", err)
	}
	return nil
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (s *KeyringStore) Clear() error {
	if err := keyring.Delete(keyringService, keyringKey); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// MemoryStore is an in-memory TokenStore used by tests.
type MemoryStore struct {
	mu    sync.Mutex
	token string
	set   bool
}

// NewMemoryStore creates an empty in-memory token store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Token returns the stored token, or ErrNoToken if none is stored.
func (s *MemoryStore) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return "", ErrNoToken
	}
	return s.token, nil
}

// SetToken stores the token, replacing any previous value.
func (s *MemoryStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
	return nil
}

// Clear removes the stored token.
func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.set = false
	return nil
}
