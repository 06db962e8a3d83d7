package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateState(t *testing.T) {
	seen := make(map[string]bool)
	for range 10 {
		s, err := generateState()
		require.NoError(t, err)
		assert.NotEmpty(t, s)
		assert.False(t, seen[s], "duplicate state: %s", s)
		seen[s] = true
		// 16 bytes base64url encoded, no padding.
		assert.Len(t, s, 22)
	}
}

func TestBindPreferredPort(t *testing.T) {
	// Occupy a port, then ask for it plus a free alternative.
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	busyPort := busy.Addr().(*net.TCPAddr).Port

	spare, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	sparePort := spare.Addr().(*net.TCPAddr).Port
	spare.Close()

	listener, port, err := bindPreferredPort([]int{busyPort, sparePort})
	require.NoError(t, err)
	defer listener.Close()
	assert.Equal(t, sparePort, port, "first free port from the list wins")
}

func TestBindPreferredPortExhausted(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	busyPort := busy.Addr().(*net.TCPAddr).Port

	_, _, err = bindPreferredPort([]int{busyPort})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--api-key", "error must point at the non-interactive method")
}

func TestWaitForCallback(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	base := fmt.Sprintf("http://%s/callback", listener.Addr())

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := waitForCallback(context.Background(), listener, "good-state")
		done <- result{code, err}
	}()

	// A state mismatch is rejected per-request and the flow keeps
	// waiting for the next connection.
	resp, err := http.Get(base + "?code=stolen&state=bad-state")
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	select {
	case r := <-done:
		t.Fatalf("callback wait ended early: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}

	// The matching state with a code completes the wait.
	resp, err = http.Get(base + "?code=the-real-code&state=good-state")
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "the-real-code", r.code)
	case <-time.After(2 * time.Second):
		t.Fatal("callback wait did not complete")
	}
}

func TestWaitForCallbackProviderError(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := waitForCallback(context.Background(), listener, "state")
		errCh <- err
	}()

	resp, err := http.Get(fmt.Sprintf("http://%s/callback?error=access_denied&state=state", listener.Addr()))
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	select {
	case err := <-errCh:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access_denied")
	case <-time.After(2 * time.Second):
		t.Fatal("callback wait did not complete")
	}
}

func TestWaitForCallbackCancelled(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := waitForCallback(ctx, listener, "state")
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not end the wait")
	}
}

// tokenServer fakes the provider token endpoint.
func tokenServer(t *testing.T, respond map[string]any, gotForm *url.Values) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if gotForm != nil {
			*gotForm = r.PostForm
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(respond))
	}))
}

func TestLoginEndToEnd(t *testing.T) {
	var form url.Values
	ts := tokenServer(t, map[string]any{
		"access_token":  "fresh-access",
		"refresh_token": "fresh-refresh",
		"token_type":    "bearer",
		"expires_in":    7200,
	}, &form)
	defer ts.Close()

	mgr := &Manager{active: tempFileStore(t)}
	flow := NewOAuthFlow(mgr, "client-id", "client-secret")
	flow.TokenURL = ts.URL
	flow.Printf = func(string, ...any) {}

	// The "browser" plays the provider: redirect straight back to the
	// callback with the expected state.
	flow.Browser = func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		go func() {
			redirect := q.Get("redirect_uri") + "?code=auth-code-123&state=" + url.QueryEscape(q.Get("state"))
			resp, err := http.Get(redirect)
			if err == nil {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
		}()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cred, err := flow.Login(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", cred.AccessToken)
	assert.Equal(t, "fresh-refresh", cred.RefreshToken)
	assert.Greater(t, cred.ExpiresAt, time.Now().Unix())

	// The exchange sent the code and the PKCE verifier.
	assert.Equal(t, "auth-code-123", form.Get("code"))
	assert.NotEmpty(t, form.Get("code_verifier"))

	// The credential was persisted through the manager.
	stored, err := mgr.Credentials()
	require.NoError(t, err)
	assert.Equal(t, cred, stored)
}

func TestRefreshKeepsOldRefreshToken(t *testing.T) {
	ts := tokenServer(t, map[string]any{
		"access_token": "new-access",
		"token_type":   "bearer",
		"expires_in":   3600,
	}, nil)
	defer ts.Close()

	mgr := &Manager{active: tempFileStore(t)}
	flow := NewOAuthFlow(mgr, "client-id", "client-secret")
	flow.TokenURL = ts.URL

	cred, err := flow.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "new-access", cred.AccessToken)
	assert.Equal(t, "old-refresh", cred.RefreshToken,
		"single-use refresh tokens are provider-dependent; keep the old one when none is issued")
}

func TestRefreshReplacesRefreshToken(t *testing.T) {
	var form url.Values
	ts := tokenServer(t, map[string]any{
		"access_token":  "new-access",
		"refresh_token": "rotated-refresh",
		"token_type":    "bearer",
	}, &form)
	defer ts.Close()

	mgr := &Manager{active: tempFileStore(t)}
	flow := NewOAuthFlow(mgr, "client-id", "client-secret")
	flow.TokenURL = ts.URL

	cred, err := flow.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "rotated-refresh", cred.RefreshToken)
	assert.Equal(t, "refresh_token", form.Get("grant_type"))

	stored, err := mgr.Credentials()
	require.NoError(t, err)
	assert.Equal(t, cred, stored)
}

func TestRefreshWithoutToken(t *testing.T) {
	mgr := &Manager{active: tempFileStore(t)}
	flow := NewOAuthFlow(mgr, "client-id", "client-secret")

	_, err := flow.Refresh(context.Background(), "")
	assert.Error(t, err)
}
