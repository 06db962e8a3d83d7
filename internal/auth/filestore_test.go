package auth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStoreAt(filepath.Join(t.TempDir(), "bitbucket", "credentials.json"))
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := tempFileStore(t)

	cred := NewOAuth("access", "refresh", 1234567890)
	require.NoError(t, store.Store(cred))

	loaded, err := store.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, cred, loaded)
}

func TestFileStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no POSIX permission bits on windows")
	}

	store := tempFileStore(t)
	require.NoError(t, store.Store(NewAPIKey("u", "k")))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStoreRetrieveEmpty(t *testing.T) {
	store := tempFileStore(t)

	cred, err := store.Retrieve()
	require.NoError(t, err)
	assert.Nil(t, cred, "nothing stored yet is not an error")
}

func TestFileStoreDelete(t *testing.T) {
	store := tempFileStore(t)

	require.NoError(t, store.Store(NewAPIKey("u", "k")))
	require.NoError(t, store.Delete())

	cred, err := store.Retrieve()
	require.NoError(t, err)
	assert.Nil(t, cred)

	// Deleting again is idempotent.
	assert.NoError(t, store.Delete())
}

func TestFileStoreCorruptFile(t *testing.T) {
	store := tempFileStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0600))

	_, err := store.Retrieve()
	assert.Error(t, err, "corruption must surface, not read as unauthenticated")
}

func TestFileStoreReplacesExisting(t *testing.T) {
	store := tempFileStore(t)

	require.NoError(t, store.Store(NewAPIKey("old", "k1")))
	require.NoError(t, store.Store(NewAPIKey("new", "k2")))

	loaded, err := store.Retrieve()
	require.NoError(t, err)
	assert.Equal(t, "new", loaded.Username)
}
