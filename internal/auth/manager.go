package auth

import (
	"github.com/sirupsen/logrus"
)

// Manager owns backend selection and is the sole owner of where
// credentials live. It picks a backend once at construction and never
// loses a credential to a bad choice: when the keyring is selected, a
// file store is still held as a standby fallback for runtime failures
// the startup probe could not catch.
type Manager struct {
	active   CredentialStore
	fallback *FileStore // nil when the file store is already active
}

// NewManager selects a storage backend and returns a manager bound to
// it. Selection order: explicit env override, WSL/container detection,
// then an active keyring round-trip probe. Probe failures are a
// selection decision, never a user-visible error.
func NewManager() (*Manager, error) {
	return newManager(hostPlatform{}, probeKeyring)
}

func newManager(p Platform, probe func() bool) (*Manager, error) {
	file, err := NewFileStore()
	if err != nil {
		return nil, err
	}

	if forceFileStorage(p) {
		logrus.Debug("auth: environment forces file-backed credential storage")
		return &Manager{active: file}, nil
	}

	if !probe() {
		logrus.Debug("auth: keyring probe failed, using file-backed credential storage")
		return &Manager{active: file}, nil
	}

	return &Manager{active: NewKeyringStore(), fallback: file}, nil
}

// NewManagerWithStore creates a manager bound to an explicit backend
// with no fallback. Useful when the caller controls storage, e.g. in
// tests.
func NewManagerWithStore(store CredentialStore) *Manager {
	return &Manager{active: store}
}

// UsingKeyring reports whether the active backend is the keyring.
func (m *Manager) UsingKeyring() bool {
	_, ok := m.active.(*KeyringStore)
	return ok
}

// Credentials returns the stored credential, or nil when not
// authenticated. If the active backend errors or is empty, the standby
// fallback is consulted before concluding "not authenticated": a
// credential may have been written there during a degraded session.
func (m *Manager) Credentials() (*Credential, error) {
	cred, err := m.active.Retrieve()
	if err == nil && cred != nil {
		return cred, nil
	}

	if m.fallback != nil {
		fbCred, fbErr := m.fallback.Retrieve()
		if fbErr == nil && fbCred != nil {
			return fbCred, nil
		}
	}

	// Surface the active backend's error (corruption, keyring outage)
	// rather than masking it as "not authenticated".
	return nil, err
}

// StoreCredentials persists the credential to the active backend. If
// that fails and a standby fallback exists, the write lands there and
// still succeeds from the caller's point of view.
func (m *Manager) StoreCredentials(cred *Credential) error {
	err := m.active.Store(cred)
	if err == nil {
		return nil
	}

	if m.fallback != nil {
		logrus.Warnf("auth: keyring write failed (%v), storing credential in %s", err, m.fallback.Path())
		return m.fallback.Store(cred)
	}
	return err
}

// ClearCredentials deletes the credential from the active backend and
// the standby fallback, so no backend is left holding a stale
// credential after a backend-selection change. Fallback deletion is
// best-effort.
func (m *Manager) ClearCredentials() error {
	err := m.active.Delete()
	if m.fallback != nil {
		if fbErr := m.fallback.Delete(); fbErr != nil {
			logrus.Debugf("auth: fallback delete failed: %v", fbErr)
		}
	}
	return err
}

// IsAuthenticated reports whether a credential is stored anywhere.
// Retrieval errors count as not authenticated.
func (m *Manager) IsAuthenticated() bool {
	cred, err := m.Credentials()
	return err == nil && cred != nil
}
