package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/bitbucket-cli/bkt/internal/auth"
	"github.com/bitbucket-cli/bkt/internal/models"
	"github.com/bitbucket-cli/bkt/internal/output"
	"github.com/bitbucket-cli/bkt/internal/version"
)

// ValidateCredential checks a not-yet-stored credential against the
// /user endpoint and returns the account it authenticates as. Used by
// the login flow before persisting anything.
func ValidateCredential(ctx context.Context, baseURL string, cred *auth.Credential) (*models.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", cred.AuthHeader())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, output.ErrNetwork(err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, output.ErrAuthHint("Authentication failed (401 Unauthorized)",
			"Verify the username and that the token is complete and has at least read permission")
	case resp.StatusCode >= 400:
		return nil, errorFromResponse(resp, data)
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, output.ErrAPI(resp.StatusCode, "could not parse /user response")
	}
	return &user, nil
}
