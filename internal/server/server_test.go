package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogdesk/internal/api"
	"blogdesk/internal/config"
	"blogdesk/internal/models"
	"blogdesk/internal/router"
	"blogdesk/internal/storage"
	"blogdesk/internal/store"
)

type harness struct {
	server *Server
	store  *store.Store
	router *router.Router
}

func newHarness(t *testing.T, backend *http.ServeMux) *harness {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	rt := router.New(router.NewTable(router.DefaultRoutes()))
	st := store.New(store.Deps{
		Client:    api.New(srv.URL),
		Storage:   storage.NewMemory(),
		Navigator: rt,
		Locale:    "en",
	})
	rt.Bind(st)
	require.NoError(t, st.Init(context.Background()))

	cfg := &config.Config{APIBaseURL: srv.URL, Port: "0"}
	return &harness{server: NewServer(cfg, st, rt), store: st, router: rt}
}

func (h *harness) do(t *testing.T, method, target, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.server.App().Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func blogBackend() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "p" {
			writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, models.AuthResponse{Token: "t1", User: &models.User{ID: 1, Username: creds.Username, Role: models.RoleUser}})
	})
	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.PostPage{Data: []models.Post{{ID: 1, Title: "hello", UserID: 1}}, Total: 1})
	})
	mux.HandleFunc("GET /user/notifications", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "token expired"})
	})
	mux.HandleFunc("DELETE /user/favorites/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return mux
}

func login(t *testing.T, h *harness) {
	t.Helper()
	resp := h.do(t, http.MethodPost, "/api/login", `{"username":"a","password":"p"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, h.store.IsAuthenticated())
}

func TestGuardRedirectsAnonymousAdmin(t *testing.T) {
	h := newHarness(t, blogBackend())

	resp := h.do(t, http.MethodGet, "/admin", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login?redirect=/admin", resp.Header.Get("Location"))
}

func TestLoginFlow(t *testing.T) {
	h := newHarness(t, blogBackend())

	resp := h.do(t, http.MethodPost, "/api/login?redirect=/admin", `{"username":"a","password":"p"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "/admin", body["redirect"])

	resp = h.do(t, http.MethodGet, "/login", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	resp = h.do(t, http.MethodGet, "/admin", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	assert.Equal(t, router.NameDashboard, body["route"])

	resp = h.do(t, http.MethodGet, "/user", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/user/profile", resp.Header.Get("Location"))
}

func TestLoginValidationAndServerErrors(t *testing.T) {
	h := newHarness(t, blogBackend())

	resp := h.do(t, http.MethodPost, "/api/login", `{"username":"a"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "password is required", decode(t, resp)["message"])

	resp = h.do(t, http.MethodPost, "/api/login", `{"username":"a","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "invalid credentials", body["message"])
	assert.False(t, h.store.IsAuthenticated())
}

func TestUnauthorizedViewRedirectsToLogin(t *testing.T) {
	h := newHarness(t, blogBackend())
	login(t, h)

	resp := h.do(t, http.MethodGet, "/user/notifications", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/login"))
	assert.False(t, h.store.IsAuthenticated())
	assert.Equal(t, router.NameLogin, h.router.Current().Name)
}

func TestActionsRequireSession(t *testing.T) {
	h := newHarness(t, blogBackend())

	resp := h.do(t, http.MethodPut, "/api/notifications/read-all", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, decode(t, resp)["success"])
}

func TestFailedFavoriteDelete(t *testing.T) {
	h := newHarness(t, blogBackend())
	login(t, h)

	resp := h.do(t, http.MethodDelete, "/api/favorites/5", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Failed to remove favorite", body["message"])

	resp = h.do(t, http.MethodDelete, "/api/favorites/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestThemeToggleSetsHeader(t *testing.T) {
	h := newHarness(t, blogBackend())

	resp := h.do(t, http.MethodPost, "/api/theme/toggle", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dark", resp.Header.Get(headerTheme))

	resp = h.do(t, http.MethodPut, "/api/theme", `{"theme":"sepia"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodPut, "/api/theme", `{"theme":"light"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "light", resp.Header.Get(headerTheme))
}

func TestPublicViews(t *testing.T) {
	h := newHarness(t, blogBackend())

	resp := h.do(t, http.MethodGet, "/?page=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, router.NameHome, body["route"])

	resp = h.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, router.NameNotFound, decode(t, resp)["route"])

	resp = h.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNavigationHistoryAndBack(t *testing.T) {
	h := newHarness(t, blogBackend())

	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/", "").StatusCode)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/login", "").StatusCode)

	body := decode(t, h.do(t, http.MethodGet, "/api/navigation", ""))
	history, ok := body["history"].([]any)
	require.True(t, ok)
	require.GreaterOrEqual(t, len(history), 2)
	assert.Equal(t, []any{"/", "/login"}, history[len(history)-2:])
	current, ok := body["current"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, router.NameLogin, current["name"])

	resp := h.do(t, http.MethodPost, "/api/navigation/back", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode(t, resp)
	assert.Equal(t, "/", body["location"])
	assert.Equal(t, router.NameHome, body["route"])
	assert.Equal(t, router.Allowed.String(), body["outcome"])
	assert.Equal(t, router.NameHome, h.router.Current().Name)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusUnprocessableEntity, statusFor(models.NewValidationError(422, "bad")))
	assert.Equal(t, fiber.StatusBadRequest, statusFor(models.NewValidationError(500, "bad")))
	assert.Equal(t, fiber.StatusUnauthorized, statusFor(models.NewAuthError("x")))
	assert.Equal(t, fiber.StatusBadGateway, statusFor(models.NewNetworkError(0, nil)))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(models.NewUnhandledError("x", nil)))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(assert.AnError))
}
