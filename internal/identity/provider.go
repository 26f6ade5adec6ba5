package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// User is an account held by the identity provider.
type User struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// Session is a provider-issued session for a user.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         User   `json:"user"`
}

// Provider is the external identity service. Credentials never leave it.
type Provider interface {
	CreateUser(ctx context.Context, email, password string, metadata map[string]any) (*User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// ProviderError carries the provider's own message, which is shown to users verbatim.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider: %s (status %d)", e.Message, e.Status)
}
