package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"tabletop/internal/common"
	"tabletop/internal/models"
	"tabletop/internal/services"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// LoginPath is where denied browser requests are sent.
const LoginPath = "/login"

const claimsContextKey = "session_claims"

type CookieConfig struct {
	Name   string
	Secure bool
}

// SessionMiddleware authenticates requests by their session token and the
// server-side session it references.
type SessionMiddleware struct {
	auth   services.AuthService
	cookie CookieConfig
	logger *zap.Logger
}

func NewSessionMiddleware(auth services.AuthService, cookie CookieConfig, logger *zap.Logger) *SessionMiddleware {
	if cookie.Name == "" {
		cookie.Name = "tabletop_session"
	}
	return &SessionMiddleware{auth: auth, cookie: cookie, logger: logger}
}

// Authenticate verifies the token from the Authorization header or the session
// cookie, loads the session from the store and puts the principal on the
// request context.
func (m *SessionMiddleware) Authenticate() echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:" + m.cookie.Name,
		ContextKey:  claimsContextKey,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return m.auth.ValidateToken(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			m.logger.Debug("session token rejected", zap.Error(err), zap.String("path", c.Path()))
			return m.Deny(c, "")
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(c echo.Context) error {
			claims, ok := c.Get(claimsContextKey).(*services.SessionClaims)
			if !ok {
				return m.Deny(c, "")
			}

			ctx := c.Request().Context()
			session, err := m.auth.LoadSession(ctx, claims)
			if err != nil {
				if !errors.Is(err, services.ErrSessionNotFound) {
					m.logger.Error("failed to load session", zap.Error(err))
					return common.SendServerError(c, "Session lookup failed")
				}
				return m.Deny(c, "")
			}

			c.SetRequest(c.Request().WithContext(common.WithPrincipal(ctx, common.Principal{
				UserID:    session.UserID,
				TenantID:  session.TenantID,
				Role:      session.Role,
				SessionID: session.ID,
			})))
			return next(c)
		})
	}
}

// Deny revokes sessionID when given, clears the session cookie and sends the
// caller to the login page. Browsers get a 303, API clients a 401 carrying
// the same Location.
func (m *SessionMiddleware) Deny(c echo.Context, sessionID string) error {
	if sessionID != "" {
		if err := m.auth.Logout(c.Request().Context(), sessionID); err != nil {
			m.logger.Warn("failed to revoke session", zap.Error(err))
		}
	}
	m.ClearCookie(c)
	if WantsHTML(c.Request()) {
		return c.Redirect(http.StatusSeeOther, LoginPath)
	}
	c.Response().Header().Set(echo.HeaderLocation, LoginPath)
	return common.SendAccessDenied(c)
}

func (m *SessionMiddleware) SetCookie(c echo.Context, token string, ttl time.Duration) {
	c.SetCookie(&http.Cookie{
		Name:     m.cookie.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *SessionMiddleware) ClearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// WantsHTML reports whether the request comes from a browser navigation.
func WantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}

// Guard admits principals whose stored profile still matches their session.
type Guard struct {
	sessions *SessionMiddleware
	staff    services.StaffService
	logger   *zap.Logger
}

func NewGuard(sessions *SessionMiddleware, staff services.StaffService, logger *zap.Logger) *Guard {
	return &Guard{sessions: sessions, staff: staff, logger: logger}
}

// RequireRole loads the caller's profile and checks that it belongs to the
// session's tenant and has one of roles. Anything else ends the session.
func (g *Guard) RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			p, ok := common.PrincipalFromContext(ctx)
			if !ok {
				return g.sessions.Deny(c, "")
			}

			staff, err := g.staff.Profile(ctx, p.UserID)
			if err != nil {
				if !errors.Is(err, services.ErrStaffNotFound) {
					g.logger.Error("failed to load profile", zap.Error(err))
					return common.SendServerError(c, "Profile lookup failed")
				}
				g.logger.Info("guard: profile missing", zap.String("user_id", p.UserID.String()))
				return g.sessions.Deny(c, p.SessionID)
			}

			if staff.TenantID == uuid.Nil || staff.TenantID != p.TenantID || !hasRole(staff.Role, roles) {
				g.logger.Info("guard: access revoked",
					zap.String("user_id", p.UserID.String()),
					zap.String("role", string(staff.Role)),
					zap.String("path", c.Path()))
				return g.sessions.Deny(c, p.SessionID)
			}

			// The profile is authoritative for the role.
			p.Role = staff.Role
			c.SetRequest(c.Request().WithContext(common.WithPrincipal(ctx, p)))
			return next(c)
		}
	}
}

func hasRole(role models.Role, allowed []models.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func (m *SessionMiddleware) CookieName() string {
	return m.cookie.Name
}
