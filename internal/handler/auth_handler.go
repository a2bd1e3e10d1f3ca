package handler

import (
	"crypto/rand"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/middleware"
	"github.com/arturoeanton/cirkle/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	frontendURL string
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *service.AuthService, frontendURL string) *AuthHandler {
	return &AuthHandler{authService: authService, frontendURL: frontendURL}
}

// Register sets up the public auth routes.
func (h *AuthHandler) Register(app *fiber.App) {
	auth := app.Group("/api/v1/auth")
	auth.Get("/:provider/login", h.Login)
	auth.Get("/:provider/callback", h.Callback)

	// Google redirects here; the provider travels in the state param as "provider:random".
	app.Get("/auth/callback", h.CallbackDirect)
}

// RegisterProtected sets up the routes that need an authenticated user.
func (h *AuthHandler) RegisterProtected(router fiber.Router) {
	router.Get("/me", h.Me)
}

// Login redirects to the OAuth2 provider's consent screen.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	provider := c.Params("provider")
	state := provider + ":" + generateState()

	authURL, err := h.authService.GetAuthURL(provider, state)
	if err != nil {
		return err
	}
	return c.Redirect().To(authURL)
}

// Callback handles /api/v1/auth/:provider/callback.
func (h *AuthHandler) Callback(c fiber.Ctx) error {
	return h.finish(c, c.Params("provider"))
}

// CallbackDirect handles the shared /auth/callback route.
func (h *AuthHandler) CallbackDirect(c fiber.Ctx) error {
	provider := "google"
	if parts := strings.SplitN(c.Query("state"), ":", 2); len(parts) == 2 && parts[0] != "" {
		provider = parts[0]
	}
	return h.finish(c, provider)
}

func (h *AuthHandler) finish(c fiber.Ctx, provider string) error {
	if msg := c.Query("error"); msg != "" {
		return fiber.NewError(fiber.StatusUnauthorized, "authorization denied: "+msg)
	}
	code := c.Query("code")
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing authorization code")
	}

	token, user, err := h.authService.HandleCallback(c.Context(), provider, code)
	if err != nil {
		return err
	}
	return c.Redirect().To(callbackURL(h.frontendURL, token, user))
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	user, err := h.authService.CurrentUser(c.Context(), uc.UserID)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func callbackURL(frontendURL, token string, user *domain.User) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("name", user.Name)
	return strings.TrimRight(frontendURL, "/") + "/auth/callback?" + q.Encode()
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
