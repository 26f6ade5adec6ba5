package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config points the client at a GoTrue-compatible auth server.
type Config struct {
	URL            string
	APIKey         string
	ServiceRoleKey string
	JWKSURL        string
	JWTSecret      string
	Timeout        time.Duration
}

// GoTrueClient talks to a GoTrue (Supabase Auth) server over its REST API.
type GoTrueClient struct {
	cfg        Config
	httpClient *http.Client
	verifier   *TokenVerifier
	logger     *zap.Logger
}

// NewGoTrueClient builds a client. verifier may be nil, in which case provider
// access tokens are trusted as returned.
func NewGoTrueClient(cfg Config, verifier *TokenVerifier, logger *zap.Logger) *GoTrueClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoTrueClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		verifier:   verifier,
		logger:     logger,
	}
}

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (b errorBody) text() string {
	for _, s := range []string{b.ErrorDescription, b.Msg, b.Message, b.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

func (c *GoTrueClient) makeRequest(ctx context.Context, method, endpoint, bearer string, payload any, out any) error {
	url := strings.TrimRight(c.cfg.URL, "/") + endpoint

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.cfg.APIKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		msg := eb.text()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		c.logger.Debug("identity provider rejected request",
			zap.String("method", method), zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))
		return &ProviderError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *GoTrueClient) CreateUser(ctx context.Context, email, password string, metadata map[string]any) (*User, error) {
	payload := map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": metadata,
	}
	var user User
	if err := c.makeRequest(ctx, http.MethodPost, "/admin/users", c.cfg.ServiceRoleKey, payload, &user); err != nil {
		return nil, err
	}
	if user.ID == uuid.Nil {
		return nil, errors.New("identity provider returned no user id")
	}
	return &user, nil
}

func (c *GoTrueClient) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return c.makeRequest(ctx, http.MethodDelete, "/admin/users/"+id.String(), c.cfg.ServiceRoleKey, nil, nil)
}

func (c *GoTrueClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	payload := map[string]string{"email": email, "password": password}
	var session Session
	if err := c.makeRequest(ctx, http.MethodPost, "/token?grant_type=password", "", payload, &session); err != nil {
		return nil, err
	}

	if c.verifier != nil {
		subject, err := c.verifier.Subject(session.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("verify provider token: %w", err)
		}
		if subject != session.User.ID {
			return nil, errors.New("provider token subject does not match user")
		}
	}
	return &session, nil
}

func (c *GoTrueClient) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return c.makeRequest(ctx, http.MethodPost, "/logout", accessToken, nil, nil)
}
