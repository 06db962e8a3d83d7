// Package auth manages Bitbucket credentials: the credential model,
// keyring and file storage backends, backend selection with fallback,
// and the OAuth 2.0 authorization-code flow.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates the credential variants.
type Kind string

const (
	// KindOAuth is a bearer token obtained via the OAuth 2.0 flow.
	KindOAuth Kind = "oauth"
	// KindAPIKey is a username plus HTTP access token pair.
	KindAPIKey Kind = "api_key"
)

// refreshMargin is how close to expiry a token may get before it is
// considered stale. Callers must still handle a late 401.
const refreshMargin = 300 * time.Second

// timeNow is swapped out in tests for deterministic expiry checks.
var timeNow = time.Now

// Credential is a tagged union: exactly one variant is populated,
// selected by Kind. The JSON form is stable and round-trips losslessly
// through both storage backends.
type Credential struct {
	Kind Kind `json:"kind"`

	// OAuth fields. ExpiresAt is an absolute epoch-seconds timestamp;
	// zero means the expiry is unknown.
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`

	// API key fields.
	Username string `json:"username,omitempty"`
	APIKey   string `json:"api_key,omitempty"`
}

// NewOAuth creates an OAuth credential. expiresAt of zero means the
// token's lifetime is unknown.
func NewOAuth(accessToken, refreshToken string, expiresAt int64) *Credential {
	return &Credential{
		Kind:         KindOAuth,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
}

// NewAPIKey creates an API key credential.
func NewAPIKey(username, apiKey string) *Credential {
	return &Credential{
		Kind:     KindAPIKey,
		Username: username,
		APIKey:   apiKey,
	}
}

// AuthHeader returns the Authorization header value for this
// credential, byte-identical to the standard Bearer/Basic schemes.
func (c *Credential) AuthHeader() string {
	switch c.Kind {
	case KindOAuth:
		return "Bearer " + c.AccessToken
	default:
		pair := c.Username + ":" + c.APIKey
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(pair))
	}
}

// NeedsRefresh reports whether an OAuth token is within the refresh
// margin of its expiry. API key credentials never need refresh, and an
// unknown expiry is assumed fine.
func (c *Credential) NeedsRefresh() bool {
	if c.Kind != KindOAuth || c.ExpiresAt == 0 {
		return false
	}
	return c.ExpiresAt < timeNow().Unix()+int64(refreshMargin.Seconds())
}

// User returns the username for API key credentials, or "" for OAuth.
func (c *Credential) User() string {
	if c.Kind == KindAPIKey {
		return c.Username
	}
	return ""
}

// IsOAuth reports whether this is an OAuth credential.
func (c *Credential) IsOAuth() bool { return c.Kind == KindOAuth }

// TypeName returns the credential type for display.
func (c *Credential) TypeName() string {
	if c.Kind == KindOAuth {
		return "OAuth 2.0"
	}
	return "API Key"
}

// validate rejects blobs that parsed as JSON but do not describe a
// well-formed credential. Storage backends treat this as corruption.
func (c *Credential) validate() error {
	switch c.Kind {
	case KindOAuth:
		if c.AccessToken == "" {
			return fmt.Errorf("oauth credential missing access_token")
		}
	case KindAPIKey:
		if c.Username == "" || c.APIKey == "" {
			return fmt.Errorf("api_key credential missing username or api_key")
		}
	default:
		return fmt.Errorf("unknown credential kind %q", c.Kind)
	}
	return nil
}

// marshalCredential serializes a credential for storage.
func marshalCredential(c *Credential) ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

// unmarshalCredential parses a stored blob. Malformed JSON or an
// ill-formed credential is a hard error, never "not authenticated".
func unmarshalCredential(data []byte) (*Credential, error) {
	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("stored credential is corrupt: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("stored credential is corrupt: %w", err)
	}
	return &c, nil
}
