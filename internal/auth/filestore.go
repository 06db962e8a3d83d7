package auth

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const credentialsFile = "credentials.json"

// FileStore keeps the credential in a JSON file under the user config
// directory. The file holds a bearer token or password equivalent in
// plaintext, so it is created with owner-only permissions. Writes take
// an advisory lock so two concurrent logins cannot interleave.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore creates a file-backed store at the default location
// (<user config dir>/bitbucket/credentials.json).
func NewFileStore() (*FileStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine config directory: %w", err)
	}
	return NewFileStoreAt(filepath.Join(dir, "bitbucket", credentialsFile)), nil
}

// NewFileStoreAt creates a file-backed store at an explicit path.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the credential file location.
func (s *FileStore) Path() string { return s.path }

// Store implements CredentialStore.
func (s *FileStore) Store(cred *Credential) error {
	data, err := marshalCredential(cred)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("could not lock credential file: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	return s.writeAtomic(data)
}

// writeAtomic writes via a 0600 temp file and rename so a crash never
// leaves a truncated credential file behind.
func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, credentialsFile+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Retrieve implements CredentialStore. A missing file is (nil, nil);
// a file that exists but does not parse is corruption and propagates.
func (s *FileStore) Retrieve() (*Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read credential file: %w", err)
	}
	return unmarshalCredential(data)
}

// Delete implements CredentialStore.
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete credential file: %w", err)
	}
	return nil
}
