package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "bitbucket-cli"
	keyringKey     = "credentials"

	// probeKey is a throwaway entry used to verify the keyring
	// actually persists values, not just that the API is present.
	probeKey   = "bitbucket-cli-probe"
	probeValue = "probe"
)

// CredentialStore persists a single credential blob.
type CredentialStore interface {
	// Store serializes the credential and replaces any existing value.
	Store(cred *Credential) error
	// Retrieve returns the stored credential, or (nil, nil) when
	// nothing is stored. Malformed stored data is an error.
	Retrieve() (*Credential, error)
	// Delete removes the stored credential. Deleting a nonexistent
	// credential is not an error.
	Delete() error
}

// KeyringStore keeps the credential in the platform secret service
// under a fixed service/key pair.
type KeyringStore struct {
	service string
	key     string
}

// NewKeyringStore creates a keyring-backed store.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: keyringService, key: keyringKey}
}

// Store implements CredentialStore.
func (s *KeyringStore) Store(cred *Credential) error {
	data, err := marshalCredential(cred)
	if err != nil {
		return err
	}
	if err := keyring.Set(s.service, s.key, string(data)); err != nil {
		return fmt.Errorf("keyring store failed: %w", err)
	}
	return nil
}

// Retrieve implements CredentialStore. A missing entry is (nil, nil);
// every other keyring error propagates.
func (s *KeyringStore) Retrieve() (*Credential, error) {
	data, err := keyring.Get(s.service, s.key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("keyring retrieve failed: %w", err)
	}
	return unmarshalCredential([]byte(data))
}

// Delete implements CredentialStore.
func (s *KeyringStore) Delete() error {
	if err := keyring.Delete(s.service, s.key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete failed: %w", err)
	}
	return nil
}

// probeKeyring round-trips a test entry through the secret service.
// Availability of the keyring API is a weaker guarantee than it
// actually persisting values; headless sessions often expose an API
// that errors on every real operation.
func probeKeyring() bool {
	if err := keyring.Set(keyringService, probeKey, probeValue); err != nil {
		return false
	}
	got, err := keyring.Get(keyringService, probeKey)
	_ = keyring.Delete(keyringService, probeKey)
	return err == nil && got == probeValue
}
