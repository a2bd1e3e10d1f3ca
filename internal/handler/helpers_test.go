package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/cirkle/internal/adapter/store"
	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/handler"
	"github.com/arturoeanton/cirkle/internal/middleware"
	"github.com/arturoeanton/cirkle/internal/pomodoro/pomodorotest"
	"github.com/arturoeanton/cirkle/internal/port"
	"github.com/arturoeanton/cirkle/internal/service"
	"github.com/arturoeanton/cirkle/pkg/config"
)

// fakeDrive is an in-memory port.DriveProvider.
type fakeDrive struct {
	mu      sync.Mutex
	files   map[string]*port.DriveFile
	next    int
	deleted []string
}

func (d *fakeDrive) put(name, mimeType string, size int64) *port.DriveFile {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	id := fmt.Sprintf("file-%d", d.next)
	f := &port.DriveFile{ID: id, Name: name, MimeType: mimeType, Size: size, WebViewLink: "https://drive.example/" + id}
	d.files[id] = f
	return f
}

func (d *fakeDrive) CreateFile(_ context.Context, name, mimeType string) (*port.DriveFile, error) {
	return d.put(name, mimeType, 0), nil
}

func (d *fakeDrive) Upload(_ context.Context, name, mimeType string, content io.Reader) (*port.DriveFile, error) {
	b, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	return d.put(name, mimeType, int64(len(b))), nil
}

func (d *fakeDrive) GetFile(_ context.Context, fileID string) (*port.DriveFile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	f, ok := d.files[fileID]
	if !ok {
		return nil, fmt.Errorf("file %s not found", fileID)
	}
	out := *f
	return &out, nil
}

func (d *fakeDrive) ShareWithLink(context.Context, string) error { return nil }

func (d *fakeDrive) DeleteFile(_ context.Context, fileID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.files, fileID)
	d.deleted = append(d.deleted, fileID)
	return nil
}

func (d *fakeDrive) rename(fileID, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[fileID].Name = name
}

// fakeProvider is a port.AuthProvider that accepts the code "good".
type fakeProvider struct{}

func (fakeProvider) ProviderName() string { return "google" }

func (fakeProvider) AuthURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (fakeProvider) ExchangeCode(_ context.Context, code string) (*domain.TokenPair, error) {
	if code != "good" {
		return nil, fmt.Errorf("bad code")
	}
	return &domain.TokenPair{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}, nil
}

func (fakeProvider) GetUserProfile(context.Context, *domain.TokenPair) (*domain.User, error) {
	return &domain.User{Provider: "google", ProviderID: "g-1", Email: "ana@example.com", Name: "Ana Díaz"}, nil
}

type apiFixture struct {
	app    *fiber.App
	store  *store.MemoryStore
	sched  *pomodorotest.Scheduler
	drive  *fakeDrive
	events *handler.EventBus
	jwt    middleware.JWTConfig
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	cfg := &config.Config{
		AppName:       "cirkle-test",
		JWTSecret:     "test-secret",
		JWTIssuer:     "cirkle-test",
		JWTExpiration: 1,
		FrontendURL:   "http://frontend.example",
	}
	f := &apiFixture{
		store:  store.NewMemoryStore(),
		sched:  pomodorotest.NewScheduler(),
		drive:  &fakeDrive{files: map[string]*port.DriveFile{}},
		events: handler.NewEventBus(),
		jwt:    service.JWTConfig(cfg),
	}

	groups := service.NewGroupService(f.store)
	board := service.NewLeaderboardService(f.store)
	sessions := service.NewSessionService(groups, service.NewScoreService(f.store, false), board, f.events,
		service.SessionConfig{DefaultSeconds: 120, Scheduler: f.sched, Audit: f.store})
	t.Cleanup(sessions.Close)

	f.app = handler.NewApp(handler.Deps{
		AppName:     cfg.AppName,
		FrontendURL: cfg.FrontendURL,
		Auth:        service.NewAuthService(port.AuthProviderRegistry{"google": fakeProvider{}}, f.store, f.store, cfg),
		Groups:      groups,
		Drive: service.NewDriveService(groups, f.store, f.store, func(context.Context, *domain.TokenPair) port.DriveProvider {
			return f.drive
		}),
		Sessions:    sessions,
		Leaderboard: board,
		Events:      f.events,
		Audit:       f.store,
		JWT:         f.jwt,
	})
	return f
}

// login stores a user with Google tokens and returns a bearer token for it.
func (f *apiFixture) login(t *testing.T, name string) (*domain.User, string) {
	t.Helper()
	u, err := f.store.UpsertUser(context.Background(), &domain.User{
		Provider:    "google",
		ProviderID:  "id-" + name,
		Email:       name + "@example.com",
		Name:        name,
		AccessToken: "access-" + name,
		TokenExpiry: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	token, err := middleware.GenerateJWT(u, f.jwt)
	require.NoError(t, err)
	return u, token
}

// do sends a request and decodes a JSON response body into out when non-nil.
func (f *apiFixture) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.send(t, req, token, out)
}

func (f *apiFixture) send(t *testing.T, req *http.Request, token string, out any) int {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second})
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// createGroup creates a group through the API and returns its id.
func (f *apiFixture) createGroup(t *testing.T, token, name string) string {
	t.Helper()
	var g domain.Group
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/v1/groups", token, map[string]string{"name": name}, &g))
	return g.ID
}
