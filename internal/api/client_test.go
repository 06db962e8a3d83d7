package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitbucket-cli/bkt/internal/auth"
	"github.com/bitbucket-cli/bkt/internal/config"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	store := auth.NewFileStoreAt(filepath.Join(t.TempDir(), "credentials.json"))
	mgr := auth.NewManagerWithStore(store)
	require.NoError(t, mgr.StoreCredentials(auth.NewAPIKey("testuser", "secret")))

	return NewClient(&config.Config{BaseURL: baseURL}, mgr)
}

func TestGetSendsAuthHeader(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"username": "testuser"}`)
	}))
	defer ts.Close()

	client := testClient(t, ts.URL)
	resp, err := client.Get(context.Background(), "/user")
	require.NoError(t, err)

	assert.Equal(t, "Basic dGVzdHVzZXI6c2VjcmV0", gotAuth)

	var user struct {
		Username string `json:"username"`
	}
	require.NoError(t, resp.UnmarshalData(&user))
	assert.Equal(t, "testuser", user.Username)
}

func TestNotAuthenticated(t *testing.T) {
	store := auth.NewFileStoreAt(filepath.Join(t.TempDir(), "credentials.json"))
	client := NewClient(&config.Config{BaseURL: "http://127.0.0.1:1"}, auth.NewManagerWithStore(store))

	_, err := client.Get(context.Background(), "/user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Not authenticated")
}

func TestErrorBodyMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"api error message", 400, `{"error": {"message": "bad request", "detail": "field x"}}`, "bad request: field x"},
		{"unauthorized", 401, `{"error": {"message": "token expired"}}`, "token expired"},
		{"forbidden", 403, `{}`, "Access denied"},
		{"not found", 404, `{"error": {"message": "Repository"}}`, "Repository not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer ts.Close()

			client := testClient(t, ts.URL)
			_, err := client.Get(context.Background(), "/x")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGetAllFollowsNextCursor(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("page") {
		case "", "1":
			fmt.Fprintf(w, `{"values": [{"id": 1}, {"id": 2}], "next": "%s/items?page=2"}`, ts.URL)
		case "2":
			fmt.Fprint(w, `{"values": [{"id": 3}]}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer ts.Close()

	client := testClient(t, ts.URL)
	values, err := client.GetAll(context.Background(), "/items")
	require.NoError(t, err)
	require.Len(t, values, 3)

	var last struct {
		ID int `json:"id"`
	}
	require.NoError(t, json.Unmarshal(values[2], &last))
	assert.Equal(t, 3, last.ID)
}

func TestRetryOnServerError(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"ok": true}`)
	}))
	defer ts.Close()

	client := testClient(t, ts.URL)
	_, err := client.Get(context.Background(), "/flaky")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestNoRetryOnClientError(t *testing.T) {
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	client := testClient(t, ts.URL)
	_, err := client.Get(context.Background(), "/bad")
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestPostSendsJSONBody(t *testing.T) {
	var gotBody map[string]any
	var gotContentType string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 7}`)
	}))
	defer ts.Close()

	client := testClient(t, ts.URL)
	resp, err := client.Post(context.Background(), "/things", map[string]string{"title": "hello"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "hello", gotBody["title"])
}
