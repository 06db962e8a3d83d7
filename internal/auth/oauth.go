package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/skratchdot/open-golang/open"
	"golang.org/x/oauth2"

	"github.com/bitbucket-cli/bkt/internal/output"
)

const (
	bitbucketAuthURL  = "https://bitbucket.org/site/oauth2/authorize"
	bitbucketTokenURL = "https://bitbucket.org/site/oauth2/access_token"

	// callbackTimeout bounds the wait for the browser redirect. The
	// flow is inherently synchronous (waiting for a human) but must
	// not hang forever.
	callbackTimeout = 5 * time.Minute
)

// preferredPorts are the loopback callback ports, in order. Bitbucket
// requires a pre-registered redirect URI, so the set is small and
// fixed rather than ephemeral.
var preferredPorts = []int{8080, 3000, 8888, 9000}

// oauthScopes cover repository, pull request, issue, pipeline, and
// account access.
var oauthScopes = []string{"repository", "pullrequest", "issue", "pipeline", "account"}

// OAuthFlow runs the authorization-code-with-PKCE flow against
// Bitbucket and persists the result through the Manager. A flow value
// lives for one login or refresh attempt.
type OAuthFlow struct {
	ClientID     string
	ClientSecret string

	// AuthURL/TokenURL default to the Bitbucket endpoints.
	AuthURL  string
	TokenURL string

	// Browser opens a URL in the user's browser. Defaults to the
	// platform opener; failures fall back to printing the URL.
	Browser func(url string) error

	// Printf emits user-facing progress. Defaults to fmt.Printf.
	Printf func(format string, args ...any)

	manager    *Manager
	httpClient *http.Client
}

// NewOAuthFlow creates a flow that stores its result via manager.
func NewOAuthFlow(manager *Manager, clientID, clientSecret string) *OAuthFlow {
	return &OAuthFlow{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Browser:      open.Run,
		Printf: func(format string, args ...any) {
			fmt.Printf(format, args...)
		},
		manager: manager,
		// The token endpoint must be POSTed directly, without
		// following redirects.
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (f *OAuthFlow) config(redirectURL string) *oauth2.Config {
	authURL, tokenURL := f.AuthURL, f.TokenURL
	if authURL == "" {
		authURL = bitbucketAuthURL
	}
	if tokenURL == "" {
		tokenURL = bitbucketTokenURL
	}
	return &oauth2.Config{
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
		RedirectURL: redirectURL,
		Scopes:      oauthScopes,
	}
}

// oauthContext routes x/oauth2's HTTP calls through our client.
func (f *OAuthFlow) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
}

// Login runs the full interactive flow: bind a loopback listener,
// open the authorization URL, wait for the redirect, exchange the code
// plus PKCE verifier for tokens, and persist the credential.
func (f *OAuthFlow) Login(ctx context.Context) (*Credential, error) {
	listener, port, err := bindPreferredPort(preferredPorts)
	if err != nil {
		return nil, err
	}
	defer listener.Close()

	redirectURL := fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	conf := f.config(redirectURL)

	verifier := oauth2.GenerateVerifier()
	state, err := generateState()
	if err != nil {
		return nil, err
	}

	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	f.Printf("Callback server listening on port %d\n", port)
	if err := f.Browser(authURL); err != nil {
		f.Printf("Could not open browser automatically.\nOpen this URL in your browser:\n\n  %s\n\n", authURL)
	} else {
		f.Printf("Opening browser for authentication...\nIf the browser does not open, visit:\n\n  %s\n\n", authURL)
	}
	f.Printf("Waiting for authorization...\n")

	code, err := waitForCallback(ctx, listener, state)
	if err != nil {
		return nil, err
	}

	f.Printf("Authorization received, exchanging for token...\n")

	tok, err := conf.Exchange(f.oauthContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, output.ErrNetwork(fmt.Errorf("token exchange failed: %w", err))
	}

	cred := credentialFromToken(tok, "")
	if err := f.manager.StoreCredentials(cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// Refresh exchanges a refresh token for a new access token and
// persists the result. Bitbucket issues reusable refresh tokens, so
// when the response carries no new one the old token is retained.
func (f *OAuthFlow) Refresh(ctx context.Context, refreshToken string) (*Credential, error) {
	if refreshToken == "" {
		return nil, output.ErrAuth("No refresh token available")
	}

	conf := f.config("")
	src := conf.TokenSource(f.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, output.ErrNetwork(fmt.Errorf("token refresh failed: %w", err))
	}

	cred := credentialFromToken(tok, refreshToken)
	if err := f.manager.StoreCredentials(cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// credentialFromToken converts a provider token response, keeping
// oldRefresh when no new refresh token was issued.
func credentialFromToken(tok *oauth2.Token, oldRefresh string) *Credential {
	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = oldRefresh
	}
	var expiresAt int64
	if !tok.Expiry.IsZero() {
		expiresAt = tok.Expiry.Unix()
	}
	return NewOAuth(tok.AccessToken, refresh, expiresAt)
}

// bindPreferredPort binds the first free port from the candidate list.
func bindPreferredPort(ports []int) (net.Listener, int, error) {
	for _, port := range ports {
		listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		if err == nil {
			return listener, port, nil
		}
	}
	return nil, 0, output.ErrAuthHint(
		fmt.Sprintf("could not bind the OAuth callback server on any of ports %v", ports),
		"Free one of these ports, or use API key authentication: bkt auth login --api-key",
	)
}

// waitForCallback serves the loopback listener until the provider
// redirects back with a code bound to the expected state. A state
// mismatch is answered with 400 and the server keeps listening; it is
// treated as noise, not a fatal condition. The wait ends when a valid
// code arrives, the context is cancelled, the timeout elapses, or the
// listener closes.
func waitForCallback(ctx context.Context, listener net.Listener, expectedState string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	server := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			state := q.Get("state")
			code := q.Get("code")

			if state != expectedState {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}

			if errParam := q.Get("error"); errParam != "" {
				select {
				case errCh <- fmt.Errorf("authorization denied: %s", errParam):
				default:
				}
				http.Error(w, "authorization failed", http.StatusBadRequest)
				return
			}

			if code == "" {
				http.Error(w, "missing authorization code", http.StatusBadRequest)
				return
			}

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, callbackSuccessPage)
			select {
			case codeCh <- code:
			default:
			}
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case err := <-serveErr:
		return "", fmt.Errorf("callback server closed unexpectedly: %w", err)
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(callbackTimeout):
		return "", output.ErrAuthHint("timed out waiting for OAuth callback",
			"Re-run: bkt auth login")
	}
}

const callbackSuccessPage = `<!DOCTYPE html>
<html>
<head><title>Bitbucket CLI</title></head>
<body style="font-family: system-ui; text-align: center; padding: 50px;">
<h1>Authentication successful</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`

// generateState returns a random CSRF token bound to one login
// attempt.
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("crypto/rand failed: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
