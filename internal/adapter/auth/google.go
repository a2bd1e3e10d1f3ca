package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/arturoeanton/cirkle/internal/domain"
)

const googleProfileURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleScopes covers sign-in plus access to files the app creates in Drive.
var GoogleScopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/drive.file",
}

// GoogleProvider implements port.AuthProvider for Google OAuth2.
type GoogleProvider struct {
	config     *oauth2.Config
	profileURL string
}

// NewGoogleProvider creates a new Google OAuth2 provider.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       GoogleScopes,
			Endpoint:     google.Endpoint,
		},
		profileURL: googleProfileURL,
	}
}

// OAuthConfig exposes the OAuth2 configuration, used to refresh Drive tokens.
func (g *GoogleProvider) OAuthConfig() *oauth2.Config {
	return g.config
}

// ProviderName returns "google".
func (g *GoogleProvider) ProviderName() string {
	return "google"
}

// AuthURL returns the Google OAuth2 consent screen URL. Offline access yields
// a refresh token so Drive calls keep working after the access token expires.
func (g *GoogleProvider) AuthURL(state string) string {
	return g.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account consent"),
	)
}

// ExchangeCode exchanges an authorization code for tokens.
func (g *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*domain.TokenPair, error) {
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("google: token exchange: %w", err)
	}
	pair := &domain.TokenPair{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		TokenType:    tok.Type(),
	}
	if id, ok := tok.Extra("id_token").(string); ok {
		pair.IDToken = id
	}
	return pair, nil
}

// GetUserProfile fetches the Google user profile using the exchanged token.
func (g *GoogleProvider) GetUserProfile(ctx context.Context, token *domain.TokenPair) (*domain.User, error) {
	client := g.config.Client(ctx, &oauth2.Token{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		TokenType:    token.TokenType,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google: create profile request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: fetch profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("google: profile fetch failed (%d): %s", resp.StatusCode, string(body))
	}

	var profile struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("google: decode profile: %w", err)
	}

	return &domain.User{
		Email:      profile.Email,
		Name:       profile.Name,
		AvatarURL:  profile.Picture,
		Provider:   "google",
		ProviderID: profile.ID,
	}, nil
}
