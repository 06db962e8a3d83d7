// Package config loads and persists non-secret settings. Credentials
// never live here; the username is stored for display purposes only.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	appDir     = "bitbucket"
	configFile = "config.yml"
)

// Environment overrides, applied after the file layer.
const (
	envWorkspace   = "BITBUCKET_WORKSPACE"
	envBaseURL     = "BITBUCKET_API_BASE_URL"
	envOAuthKey    = "BITBUCKET_OAUTH_KEY"
	envOAuthSecret = "BITBUCKET_OAUTH_SECRET"
)

// DefaultBaseURL is the Bitbucket Cloud REST API root.
const DefaultBaseURL = "https://api.bitbucket.org/2.0"

// Config holds the resolved configuration.
type Config struct {
	// Auth display settings (no secrets).
	Username string `yaml:"username,omitempty"`

	// Defaults applied when flags are absent.
	DefaultWorkspace  string `yaml:"default_workspace,omitempty"`
	DefaultRepository string `yaml:"default_repository,omitempty"`

	// BaseURL overrides the API root (testing, proxies).
	BaseURL string `yaml:"base_url,omitempty"`

	// OAuth consumer credentials. These identify the OAuth app, not
	// the user; they may also come from the environment.
	OAuthKey    string `yaml:"oauth_key,omitempty"`
	OAuthSecret string `yaml:"oauth_secret,omitempty"`

	path string
}

// Dir returns the configuration directory.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not determine config directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// Load reads the config file, falling back to defaults when it does
// not exist, then applies environment overrides.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return LoadFrom(filepath.Join(dir, configFile))
}

// LoadFrom reads configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := &Config{BaseURL: DefaultBaseURL, path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse %s: %w", path, err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envWorkspace); v != "" {
		c.DefaultWorkspace = v
	}
	if v := os.Getenv(envBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(envOAuthKey); v != "" {
		c.OAuthKey = v
	}
	if v := os.Getenv(envOAuthSecret); v != "" {
		c.OAuthSecret = v
	}
}

// Save writes the configuration back to its source path.
func (c *Config) Save() error {
	if c.path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(dir, configFile)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0644)
}

// ClearAuth removes the display username on logout.
func (c *Config) ClearAuth() {
	c.Username = ""
}

// Set assigns a key by its yaml name. Used by `bkt config set`.
func (c *Config) Set(key, value string) error {
	switch key {
	case "username":
		c.Username = value
	case "default_workspace":
		c.DefaultWorkspace = value
	case "default_repository":
		c.DefaultRepository = value
	case "base_url":
		c.BaseURL = value
	case "oauth_key":
		c.OAuthKey = value
	case "oauth_secret":
		c.OAuthSecret = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// Get reads a key by its yaml name.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "username":
		return c.Username, nil
	case "default_workspace":
		return c.DefaultWorkspace, nil
	case "default_repository":
		return c.DefaultRepository, nil
	case "base_url":
		return c.BaseURL, nil
	case "oauth_key":
		return c.OAuthKey, nil
	case "oauth_secret":
		return c.OAuthSecret, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}
