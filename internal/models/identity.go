package models

import "github.com/google/uuid"

// Identity is the provider-owned view of a user. The provider owns credentials
// and session issuance; this system only ever reads it or asks the provider to
// create/destroy it.
type Identity struct {
	ID       uuid.UUID         `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"user_metadata,omitempty"`
}

// Session is a provider-issued session (access + refresh token pair)
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenClaims represents the claims extracted from a provider-issued JWT
type TokenClaims struct {
	Sub   string `json:"sub"`   // Subject (user ID from provider)
	Email string `json:"email"` // User email
	Exp   int64  `json:"exp"`   // Expiration time
	Iat   int64  `json:"iat"`   // Issued at
	Iss   string `json:"iss"`   // Issuer
	Aud   string `json:"aud"`   // Audience
}
