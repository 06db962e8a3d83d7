package auth

import (
	"os"
	"strings"
)

// envFileStorage forces the file backend regardless of platform
// detection. Escape hatch for environments where the secret service
// is known to misbehave.
const envFileStorage = "BITBUCKET_USE_FILE_STORAGE"

// Platform abstracts the environment probes used for backend
// selection so tests can simulate WSL and container environments
// without touching the real filesystem.
type Platform interface {
	Getenv(key string) string
	ReadFile(path string) (string, error)
	FileExists(path string) bool
}

// hostPlatform is the real environment.
type hostPlatform struct{}

func (hostPlatform) Getenv(key string) string { return os.Getenv(key) }

func (hostPlatform) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

func (hostPlatform) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// isWSL detects the Windows Subsystem for Linux, where the Linux
// secret service daemon is commonly absent.
func isWSL(p Platform) bool {
	if version, err := p.ReadFile("/proc/version"); err == nil {
		lower := strings.ToLower(version)
		if strings.Contains(lower, "microsoft") || strings.Contains(lower, "wsl") {
			return true
		}
	}
	return p.Getenv("WSL_DISTRO_NAME") != "" || p.Getenv("WSL_INTEROP") != ""
}

// isContainer detects docker/lxc/kubernetes containers via the marker
// file or PID 1 cgroup metadata.
func isContainer(p Platform) bool {
	if p.FileExists("/.dockerenv") {
		return true
	}
	cgroup, err := p.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	return strings.Contains(cgroup, "docker") ||
		strings.Contains(cgroup, "lxc") ||
		strings.Contains(cgroup, "kubepods")
}

// forceFileStorage reports whether environment signals rule out the
// keyring before any probe is attempted.
func forceFileStorage(p Platform) bool {
	if p.Getenv(envFileStorage) != "" {
		return true
	}
	return isWSL(p) || isContainer(p)
}
