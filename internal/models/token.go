package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is the server-side record behind a session token. Signing out deletes it,
// which invalidates every token that references it.
type Session struct {
	ID                   string    `json:"id"`
	UserID               uuid.UUID `json:"user_id"`
	TenantID             uuid.UUID `json:"tenant_id"`
	Role                 Role      `json:"role"`
	ProviderAccessToken  string    `json:"provider_access_token,omitempty"`
	ProviderRefreshToken string    `json:"provider_refresh_token,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	ExpiresAt            time.Time `json:"expires_at"`
}

// TokenResponse is returned by login.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	Redirect    string       `json:"redirect"`
	Staff       *StaffMember `json:"staff"`
	Tenant      *Tenant      `json:"tenant"`
	IssuedAt    time.Time    `json:"issued_at"`
}
