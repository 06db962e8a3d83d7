package auth

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform simulates environment probes without touching the real
// filesystem.
type fakePlatform struct {
	env   map[string]string
	files map[string]string
}

func (p *fakePlatform) Getenv(key string) string { return p.env[key] }

func (p *fakePlatform) ReadFile(path string) (string, error) {
	if content, ok := p.files[path]; ok {
		return content, nil
	}
	return "", errors.New("no such file")
}

func (p *fakePlatform) FileExists(path string) bool {
	_, ok := p.files[path]
	return ok
}

func plainPlatform() *fakePlatform {
	return &fakePlatform{env: map[string]string{}, files: map[string]string{}}
}

// failingStore errors on every operation, simulating a keyring daemon
// that died mid-session.
type failingStore struct{}

func (failingStore) Store(*Credential) error        { return errors.New("keyring unavailable") }
func (failingStore) Retrieve() (*Credential, error) { return nil, errors.New("keyring unavailable") }
func (failingStore) Delete() error                  { return errors.New("keyring unavailable") }

func TestBackendSelectionEnvOverride(t *testing.T) {
	p := plainPlatform()
	p.env[envFileStorage] = "1"

	probed := false
	mgr, err := newManager(p, func() bool { probed = true; return true })
	require.NoError(t, err)

	assert.False(t, mgr.UsingKeyring())
	assert.False(t, probed, "env override must short-circuit the probe")
}

func TestBackendSelectionWSL(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakePlatform)
	}{
		{"proc version microsoft", func(p *fakePlatform) {
			p.files["/proc/version"] = "Linux version 5.15.0-Microsoft-standard"
		}},
		{"proc version wsl", func(p *fakePlatform) {
			p.files["/proc/version"] = "Linux version 6.6.36.6-microsoft-standard-WSL2"
		}},
		{"env distro name", func(p *fakePlatform) {
			p.env["WSL_DISTRO_NAME"] = "Ubuntu"
		}},
		{"env interop", func(p *fakePlatform) {
			p.env["WSL_INTEROP"] = "/run/WSL/1_interop"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := plainPlatform()
			tt.setup(p)

			mgr, err := newManager(p, func() bool { return true })
			require.NoError(t, err)
			assert.False(t, mgr.UsingKeyring())
		})
	}
}

func TestBackendSelectionContainer(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakePlatform)
	}{
		{"dockerenv marker", func(p *fakePlatform) {
			p.files["/.dockerenv"] = ""
		}},
		{"cgroup docker", func(p *fakePlatform) {
			p.files["/proc/1/cgroup"] = "0::/docker/abc123"
		}},
		{"cgroup kubepods", func(p *fakePlatform) {
			p.files["/proc/1/cgroup"] = "0::/kubepods/besteffort/pod1"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := plainPlatform()
			tt.setup(p)

			mgr, err := newManager(p, func() bool { return true })
			require.NoError(t, err)
			assert.False(t, mgr.UsingKeyring())
		})
	}
}

func TestBackendSelectionProbe(t *testing.T) {
	mgr, err := newManager(plainPlatform(), func() bool { return false })
	require.NoError(t, err)
	assert.False(t, mgr.UsingKeyring(), "failed probe falls back to file storage")

	mgr, err = newManager(plainPlatform(), func() bool { return true })
	require.NoError(t, err)
	assert.True(t, mgr.UsingKeyring())
	assert.NotNil(t, mgr.fallback, "keyring selection keeps a standby file fallback")
}

func TestStoreFallsBackOnWriteFailure(t *testing.T) {
	fallback := tempFileStore(t)
	mgr := &Manager{active: failingStore{}, fallback: fallback}

	cred := NewAPIKey("testuser", "secret")
	require.NoError(t, mgr.StoreCredentials(cred), "write must succeed via fallback")

	loaded, err := mgr.Credentials()
	require.NoError(t, err)
	assert.Equal(t, cred, loaded)
}

func TestStoreNoFallbackPropagates(t *testing.T) {
	mgr := &Manager{active: failingStore{}}
	assert.Error(t, mgr.StoreCredentials(NewAPIKey("u", "k")))
}

func TestRetrieveConsultsFallback(t *testing.T) {
	// A credential stored via fallback during a degraded session must
	// be found even when the active backend looks healthy but empty.
	fallback := tempFileStore(t)
	require.NoError(t, fallback.Store(NewAPIKey("testuser", "secret")))

	empty := NewFileStoreAt(filepath.Join(t.TempDir(), "credentials.json"))
	mgr := &Manager{active: empty, fallback: fallback}

	cred, err := mgr.Credentials()
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "testuser", cred.Username)
}

func TestRetrieveActiveErrorSurfacesWhenFallbackEmpty(t *testing.T) {
	mgr := &Manager{active: failingStore{}, fallback: tempFileStore(t)}

	_, err := mgr.Credentials()
	assert.Error(t, err)
	assert.False(t, mgr.IsAuthenticated(), "errors are conservatively unauthenticated")
}

func TestClearDeletesBothBackends(t *testing.T) {
	active := tempFileStore(t)
	fallback := tempFileStore(t)
	require.NoError(t, active.Store(NewAPIKey("u", "k")))
	require.NoError(t, fallback.Store(NewAPIKey("u", "k")))

	mgr := &Manager{active: active, fallback: fallback}
	require.NoError(t, mgr.ClearCredentials())

	for _, store := range []*FileStore{active, fallback} {
		cred, err := store.Retrieve()
		require.NoError(t, err)
		assert.Nil(t, cred)
	}
}

func TestClearSwallowsFallbackError(t *testing.T) {
	active := tempFileStore(t)
	require.NoError(t, active.Store(NewAPIKey("u", "k")))

	// Fallback deletion failure must not mask a successful logout.
	mgr := &Manager{active: active, fallback: NewFileStoreAt(string([]byte{0}))}
	assert.NoError(t, mgr.ClearCredentials())
}

func TestAuthLifecycle(t *testing.T) {
	// Fresh environment -> login -> authenticated -> logout -> fresh.
	mgr := &Manager{active: tempFileStore(t)}

	assert.False(t, mgr.IsAuthenticated())

	cred := NewAPIKey("testuser", "app_password_secret_value")
	require.NoError(t, mgr.StoreCredentials(cred))

	assert.True(t, mgr.IsAuthenticated())
	stored, err := mgr.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "Basic dGVzdHVzZXI6YXBwX3Bhc3N3b3JkX3NlY3JldF92YWx1ZQ==", stored.AuthHeader())

	require.NoError(t, mgr.ClearCredentials())
	assert.False(t, mgr.IsAuthenticated())
}
