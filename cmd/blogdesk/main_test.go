package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogdesk/internal/models"
)

type backend struct {
	mu      sync.Mutex
	bearers []string
	queries []string
}

func (b *backend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bearers = append(b.bearers, r.Header.Get("Authorization"))
	b.queries = append(b.queries, r.URL.RawQuery)
}

func (b *backend) lastBearer() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bearers[len(b.bearers)-1]
}

func (b *backend) lastQuery() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries[len(b.queries)-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func setupCLI(t *testing.T) *backend {
	t.Helper()
	b := &backend{}
	user := &models.User{ID: 7, Username: "alice", Email: "alice@example.com", Role: "user"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		var creds models.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, models.AuthResponse{Token: "t1", User: user})
	})
	mux.HandleFunc("GET /user/profile", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		if r.Header.Get("Authorization") != "Bearer t1" {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, user)
	})
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"data":  []models.Post{{ID: 1, Title: "Hello"}},
			"total": 1,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("STORAGE_DRIVER", "file")
	t.Setenv("STORAGE_PATH", filepath.Join(t.TempDir(), "storage.json"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOCALE", "en")
	return b
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestHelp(t *testing.T) {
	out, err := runCLI(t)
	require.NoError(t, err)
	assert.Contains(t, out, "Usage: blogdesk")
	for _, c := range commands {
		assert.Contains(t, out, c.name)
	}
	assert.Contains(t, out, "--storage")

	out, err = runCLI(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Commands:")
}

func TestUnknownCommand(t *testing.T) {
	_, err := runCLI(t, "publish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "publish"`)
}

func TestInvalidStorageOverride(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, "--storage", "floppy", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
}

func TestSessionPersistsAcrossRuns(t *testing.T) {
	b := setupCLI(t)

	out, err := runCLI(t, "login", "-u", "alice", "-p", "secret")
	require.NoError(t, err)
	var res models.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Success)
	assert.Empty(t, b.lastBearer(), "login is a public call")

	out, err = runCLI(t, "whoami")
	require.NoError(t, err)
	assert.Equal(t, "Bearer t1", b.lastBearer())
	var session struct {
		User            models.User `json:"user"`
		IsAuthenticated bool        `json:"isAuthenticated"`
		Verified        bool        `json:"verified"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &session))
	assert.True(t, session.IsAuthenticated)
	assert.True(t, session.Verified)
	assert.Equal(t, "alice", session.User.Username)
	assert.NotContains(t, out, "t1", "the token is never printed")

	_, err = runCLI(t, "logout")
	require.NoError(t, err)

	out, err = runCLI(t, "whoami")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &session))
	assert.False(t, session.IsAuthenticated)
}

func TestLoginFailure(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "login", "--username", "alice", "--password", "wrong")
	require.Error(t, err)
	var res models.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Success)
	assert.Equal(t, "Invalid credentials", res.Message)

	_, err = runCLI(t, "login", "--username", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestPostsFlags(t *testing.T) {
	b := setupCLI(t)

	out, err := runCLI(t, "posts", "--page", "2", "--tag", "go")
	require.NoError(t, err)
	assert.Contains(t, b.lastQuery(), "page=2")
	assert.Contains(t, b.lastQuery(), "pageSize=10")
	assert.Contains(t, b.lastQuery(), "status=published")
	assert.Contains(t, b.lastQuery(), "tag=go")
	assert.Contains(t, out, "Hello")
}

func TestNotificationsRequireSession(t *testing.T) {
	setupCLI(t)
	_, err := runCLI(t, "notifications")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
}

func TestThemeCommand(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "theme")
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"light"}`, out)

	out, err = runCLI(t, "theme", "toggle")
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, out)

	out, err = runCLI(t, "theme")
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, out, "theme survives the restart")

	_, err = runCLI(t, "theme", "sepia")
	require.Error(t, err)
}
