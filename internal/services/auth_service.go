package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tabletop/internal/caching"
	"tabletop/internal/identity"
	"tabletop/internal/models"
	"tabletop/internal/repositories"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/gommon/random"
	"go.uber.org/zap"
)

const (
	tokenIssuer   = "tabletop-auth"
	tokenAudience = "tabletop-api"
	sessionIDSize = 32
)

type LoginRequest struct {
	TenantCode string `json:"tenant_code"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// SessionClaims is the payload of a session token. The token is only honoured
// while the session it names still exists.
type SessionClaims struct {
	UserID    string `json:"user_id"`
	TenantID  string `json:"tenant_id"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type AuthConfig struct {
	SessionSecret         string
	SessionTTL            time.Duration
	AutoProvisionProfiles bool
	LoginRateLimit        int
	LoginRateWindow       time.Duration
}

type AuthService interface {
	Login(ctx context.Context, req *LoginRequest) (*models.TokenResponse, error)
	// Logout revokes the session and signs out at the identity provider. Unknown
	// sessions are not an error.
	Logout(ctx context.Context, sessionID string) error
	ValidateToken(token string) (*SessionClaims, error)
	// LoadSession returns the live session behind claims or ErrSessionNotFound.
	LoadSession(ctx context.Context, claims *SessionClaims) (*models.Session, error)
	SecretKey() []byte
}

type authService struct {
	tenants   TenantService
	staffRepo repositories.StaffRepository
	provider  identity.Provider
	cache     caching.CacheService
	audit     AuditLogsService
	cfg       AuthConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthService(tenants TenantService, staffRepo repositories.StaffRepository, provider identity.Provider, cache caching.CacheService, audit AuditLogsService, cfg AuthConfig, logger *zap.Logger) AuthService {
	return &authService{
		tenants:   tenants,
		staffRepo: staffRepo,
		provider:  provider,
		cache:     cache,
		audit:     audit,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *authService) SecretKey() []byte {
	return []byte(s.cfg.SessionSecret)
}

func rateLimitKey(code, email string) string {
	return "login:" + code + ":" + strings.ToLower(strings.TrimSpace(email))
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*models.TokenResponse, error) {
	if strings.TrimSpace(req.Email) == "" {
		return nil, invalid("email", "is required")
	}
	if req.Password == "" {
		return nil, invalid("password", "is required")
	}

	tenant, err := s.tenants.ResolveCode(ctx, req.TenantCode)
	if err != nil {
		return nil, err
	}

	rlKey := rateLimitKey(tenant.Code, req.Email)
	if s.cfg.LoginRateLimit > 0 {
		limited, err := s.cache.IsRateLimited(ctx, rlKey, s.cfg.LoginRateLimit, s.cfg.LoginRateWindow)
		if err != nil {
			s.logger.Warn("login rate limit check failed", zap.Error(err))
		} else if limited {
			return nil, ErrRateLimited
		}
	}

	provSession, err := s.provider.SignInWithPassword(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return nil, err
	}

	staff, err := s.resolveProfile(ctx, tenant, provSession)
	if err != nil {
		s.signOutProvider(ctx, provSession.AccessToken)
		return nil, err
	}

	if staff.TenantID != tenant.ID {
		s.signOutProvider(ctx, provSession.AccessToken)
		// Recorded under the account's own restaurant so the requested one
		// learns nothing about staff it does not own.
		if err := s.audit.LogActivity(ctx, staff.TenantID, "staff", staff.ID.String(), models.ActionLoginRejected, nil, nil,
			models.JSONB{"reason": "tenant_mismatch"}); err != nil {
			s.logger.Warn("failed to audit rejected login", zap.Error(err))
		}
		return nil, ErrAccessDenied
	}

	now := s.now().UTC()
	session := &models.Session{
		ID:                   random.String(sessionIDSize),
		UserID:               staff.ID,
		TenantID:             tenant.ID,
		Role:                 staff.Role,
		ProviderAccessToken:  provSession.AccessToken,
		ProviderRefreshToken: provSession.RefreshToken,
		CreatedAt:            now,
		ExpiresAt:            now.Add(s.cfg.SessionTTL),
	}
	if err := s.cache.SetSession(ctx, session, s.cfg.SessionTTL); err != nil {
		s.signOutProvider(ctx, provSession.AccessToken)
		return nil, fmt.Errorf("store session: %w", err)
	}

	token, err := s.signToken(session)
	if err != nil {
		_ = s.cache.DeleteSession(ctx, session.ID)
		s.signOutProvider(ctx, provSession.AccessToken)
		return nil, err
	}

	if s.cfg.LoginRateLimit > 0 {
		if err := s.cache.ResetRateLimit(ctx, rlKey); err != nil {
			s.logger.Debug("failed to reset login rate limit", zap.Error(err))
		}
	}

	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.cfg.SessionTTL.Seconds()),
		Redirect:    staff.Role.LandingPath(),
		Staff:       staff,
		Tenant:      tenant,
		IssuedAt:    now,
	}, nil
}

// resolveProfile loads the principal's profile. A missing profile is either
// rejected or, when enabled, created as a waiter of the requested tenant and audited.
func (s *authService) resolveProfile(ctx context.Context, tenant *models.Tenant, provSession *identity.Session) (*models.StaffMember, error) {
	staff, err := s.staffRepo.GetByID(ctx, provSession.User.ID)
	if err == nil {
		return staff, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !s.cfg.AutoProvisionProfiles {
		s.logger.Info("login rejected: principal has no profile", zap.String("tenant_id", tenant.ID.String()))
		return nil, ErrAccessDenied
	}

	email := provSession.User.Email
	staff = &models.StaffMember{
		ID:       provSession.User.ID,
		TenantID: tenant.ID,
		Name:     strings.Split(email, "@")[0],
		Email:    email,
		Role:     models.RoleWaiter,
	}
	if err := s.staffRepo.Create(ctx, staff); err != nil {
		return nil, fmt.Errorf("provision profile: %w", err)
	}
	s.logger.Warn("auto-provisioned staff profile at login",
		zap.String("tenant_id", tenant.ID.String()), zap.String("staff_id", staff.ID.String()))
	if err := s.audit.LogActivity(ctx, tenant.ID, "staff", staff.ID.String(), models.ActionProfileAutoProvisioned, &staff.ID, nil, staffValues(staff)); err != nil {
		s.logger.Error("failed to audit profile auto-provisioning", zap.Error(err))
	}
	return staff, nil
}

func (s *authService) signOutProvider(ctx context.Context, accessToken string) {
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		s.logger.Warn("identity provider sign-out failed", zap.Error(err))
	}
}

func (s *authService) signToken(session *models.Session) (string, error) {
	claims := SessionClaims{
		UserID:    session.UserID.String(),
		TenantID:  session.TenantID.String(),
		Role:      string(session.Role),
		SessionID: session.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   session.UserID.String(),
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.SecretKey())
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

func (s *authService) ValidateToken(token string) (*SessionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		return s.SecretKey(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	claims, ok := parsed.Claims.(*SessionClaims)
	if !ok || !parsed.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (s *authService) LoadSession(ctx context.Context, claims *SessionClaims) (*models.Session, error) {
	session, err := s.cache.GetSession(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID.String() != claims.UserID || session.TenantID.String() != claims.TenantID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	session, err := s.cache.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := s.cache.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if session != nil {
		s.signOutProvider(ctx, session.ProviderAccessToken)
	}
	return nil
}
