package handler_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/middleware"
)

func redirect(t *testing.T, f *apiFixture, path string) *url.URL {
	t.Helper()
	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, path, nil), fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.GreaterOrEqual(t, resp.StatusCode, 300)
	require.Less(t, resp.StatusCode, 400)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return loc
}

func TestHealth(t *testing.T) {
	f := newAPI(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/health", "", nil, &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	f := newAPI(t)

	var body map[string]any
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/groups", "", nil, &body))
	assert.Contains(t, body["error"], "unauthorized")

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/v1/groups", "not-a-jwt", nil, nil))
}

func TestAuth_LoginRedirectsWithProviderState(t *testing.T) {
	f := newAPI(t)

	loc := redirect(t, f, "/api/v1/auth/google/login")
	assert.Equal(t, "accounts.example", loc.Host)
	assert.True(t, strings.HasPrefix(loc.Query().Get("state"), "google:"))

	var body map[string]any
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/auth/github/login", "", nil, &body))
}

func TestAuth_CallbackIssuesToken(t *testing.T) {
	f := newAPI(t)

	loc := redirect(t, f, "/auth/callback?code=good&state=google:abc")
	assert.Equal(t, "frontend.example", loc.Host)
	assert.Equal(t, "/auth/callback", loc.Path)
	assert.Equal(t, "Ana Díaz", loc.Query().Get("name"))

	claims, err := middleware.ValidateJWT(loc.Query().Get("token"), f.jwt)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", claims.Email)

	var me domain.User
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/me", loc.Query().Get("token"), nil, &me))
	assert.Equal(t, claims.Subject, me.ID)
	assert.Equal(t, "Ana Díaz", me.Name)

	stored, err := f.store.GetUserByID(t.Context(), me.ID)
	require.NoError(t, err)
	assert.Equal(t, "refresh", stored.RefreshToken)
}

func TestAuth_CallbackErrors(t *testing.T) {
	f := newAPI(t)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/auth/callback?state=google:abc", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/auth/callback?error=access_denied", "", nil, nil))
	assert.Equal(t, http.StatusInternalServerError, f.do(t, http.MethodGet, "/api/v1/auth/google/callback?code=bad", "", nil, nil))
}
