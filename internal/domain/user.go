package domain

import "time"

// User represents an authenticated user in the system.
type User struct {
	ID           string    `json:"id"          db:"id"          firestore:"id"`
	Email        string    `json:"email"       db:"email"       firestore:"email"`
	Name         string    `json:"name"        db:"name"        firestore:"displayName"`
	AvatarURL    string    `json:"avatar_url"  db:"avatar_url"  firestore:"photoURL"`
	Provider     string    `json:"provider"    db:"provider"    firestore:"provider"`
	ProviderID   string    `json:"provider_id" db:"provider_id" firestore:"providerId"`
	Role         string    `json:"role"        db:"role"        firestore:"role"`
	AccessToken  string    `json:"-"           db:"access_token"  firestore:"accessToken"` // never serialized to JSON
	RefreshToken string    `json:"-"           db:"refresh_token" firestore:"refreshToken"`
	TokenExpiry  time.Time `json:"-"           db:"token_expiry"  firestore:"tokenExpiry"`
	CreatedAt    time.Time `json:"created_at"  db:"created_at"  firestore:"createdAt"`
	UpdatedAt    time.Time `json:"updated_at"  db:"updated_at"  firestore:"updatedAt"`
}

// Token returns the OAuth tokens stored for the user.
func (u *User) Token() *TokenPair {
	return &TokenPair{
		AccessToken:  u.AccessToken,
		RefreshToken: u.RefreshToken,
		Expiry:       u.TokenExpiry,
		TokenType:    "Bearer",
	}
}

// TokenPair holds the OAuth2 tokens returned after code exchange.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	IDToken      string    `json:"id_token,omitempty"`
	Expiry       time.Time `json:"expiry"`
	TokenType    string    `json:"token_type"`
}

// UserContext is the authenticated user context injected into request handlers.
type UserContext struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}
