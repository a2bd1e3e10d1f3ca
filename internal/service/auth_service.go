package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arturoeanton/cirkle/internal/domain"
	"github.com/arturoeanton/cirkle/internal/middleware"
	"github.com/arturoeanton/cirkle/internal/port"
	"github.com/arturoeanton/cirkle/pkg/config"
)

// AuthService handles the authentication flow.
type AuthService struct {
	providers port.AuthProviderRegistry
	users     port.UserStore
	audit     port.AuditStore
	jwtCfg    middleware.JWTConfig
}

// NewAuthService creates a new authentication service.
func NewAuthService(providers port.AuthProviderRegistry, users port.UserStore, audit port.AuditStore, cfg *config.Config) *AuthService {
	return &AuthService{
		providers: providers,
		users:     users,
		audit:     audit,
		jwtCfg:    JWTConfig(cfg),
	}
}

// JWTConfig derives the token settings from the application config.
func JWTConfig(cfg *config.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		ExpiresIn: time.Duration(cfg.JWTExpiration) * time.Hour,
	}
}

// GetAuthURL returns the OAuth2 authorization URL for the given provider.
func (s *AuthService) GetAuthURL(providerName, state string) (string, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %s", port.ErrUnknownProvider, providerName)
	}
	return provider.AuthURL(state), nil
}

// HandleCallback exchanges the code, upserts the user with the provider's
// tokens and returns a signed JWT.
func (s *AuthService) HandleCallback(ctx context.Context, providerName, code string) (string, *domain.User, error) {
	provider, ok := s.providers[providerName]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", port.ErrUnknownProvider, providerName)
	}

	// Exchange authorization code for tokens
	tokens, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("exchange code: %w", err)
	}

	// Fetch user profile
	profile, err := provider.GetUserProfile(ctx, tokens)
	if err != nil {
		return "", nil, fmt.Errorf("get profile: %w", err)
	}

	// Keep the Google tokens for Drive calls made on the user's behalf
	profile.AccessToken = tokens.AccessToken
	profile.RefreshToken = tokens.RefreshToken
	profile.TokenExpiry = tokens.Expiry

	user, err := s.users.UpsertUser(ctx, profile)
	if err != nil {
		return "", nil, fmt.Errorf("upsert user: %w", err)
	}

	jwt, err := middleware.GenerateJWT(user, s.jwtCfg)
	if err != nil {
		return "", nil, fmt.Errorf("generate jwt: %w", err)
	}

	if s.audit != nil {
		if err := s.audit.WriteAudit(user.ID, domain.AuditActionLogin, "auth", providerName, "{}", "", ""); err != nil {
			slog.Warn("failed to write login audit", "user_id", user.ID, "error", err)
		}
	}

	slog.Info("user authenticated", "user_id", user.ID, "provider", providerName)
	return jwt, user, nil
}

// CurrentUser returns the stored profile of an authenticated user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetUserByID(ctx, userID)
}
