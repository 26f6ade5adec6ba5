package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"tabletop/internal/common"
	"tabletop/internal/middleware"
	"tabletop/internal/models"
	"tabletop/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	registerTypeRestaurant = "restaurant"
	registerTypeWaiter     = "waiter"

	waiterRequestKey = "register_waiter_request"
	maxRegisterBody  = 64 << 10
)

// AuthHandlers serves login, logout and registration.
type AuthHandlers struct {
	auth         services.AuthService
	registration services.RegistrationService
	sessions     *middleware.SessionMiddleware
	sessionTTL   time.Duration
	logger       *zap.Logger

	// registerWaiter runs behind session authentication and the admin guard.
	registerWaiter echo.HandlerFunc
}

func NewAuthHandlers(auth services.AuthService, registration services.RegistrationService, sessions *middleware.SessionMiddleware, guard *middleware.Guard, sessionTTL time.Duration, logger *zap.Logger) *AuthHandlers {
	h := &AuthHandlers{
		auth:         auth,
		registration: registration,
		sessions:     sessions,
		sessionTTL:   sessionTTL,
		logger:       logger,
	}
	h.registerWaiter = sessions.Authenticate()(guard.RequireRole(models.RoleAdmin)(h.handleRegisterWaiter))
	return h
}

// Login godoc
// @Summary Sign in with a restaurant code and credentials
// @Tags auth
// @Accept json
// @Produce json
// @Param request body services.LoginRequest true "credentials"
// @Success 200 {object} models.TokenResponse
// @Failure 400 {object} common.ErrorResponse
// @Failure 401 {object} common.ErrorResponse
// @Router /v1/auth/login [post]
func (h *AuthHandlers) Login(c echo.Context) error {
	var req services.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, "log in", err)
	}

	resp, err := h.auth.Login(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, h.logger, "log in", err)
	}

	h.sessions.SetCookie(c, resp.AccessToken, h.sessionTTL)
	return c.JSON(http.StatusOK, resp)
}

// Logout ends the caller's session. It succeeds without a session too.
func (h *AuthHandlers) Logout(c echo.Context) error {
	h.revoke(c)
	return c.NoContent(http.StatusNoContent)
}

// LogoutRedirect is the browser variant of Logout.
func (h *AuthHandlers) LogoutRedirect(c echo.Context) error {
	h.revoke(c)
	return c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}

func (h *AuthHandlers) revoke(c echo.Context) {
	if token := h.requestToken(c); token != "" {
		if claims, err := h.auth.ValidateToken(token); err == nil {
			if err := h.auth.Logout(c.Request().Context(), claims.SessionID); err != nil {
				h.logger.Warn("logout failed", zap.Error(err))
			}
		}
	}
	h.sessions.ClearCookie(c)
}

func (h *AuthHandlers) requestToken(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := c.Cookie(h.sessions.CookieName()); err == nil {
		return cookie.Value
	}
	return ""
}

type registerEnvelope struct {
	Type string `json:"type"`
}

type registerResponse struct {
	Success bool                         `json:"success"`
	Result  *services.RegistrationResult `json:"result"`
}

// Register godoc
// @Summary Register a restaurant, or a waiter of the caller's restaurant
// @Description type=restaurant is public; type=waiter requires an admin session.
// @Tags auth
// @Accept json
// @Produce json
// @Success 201 {object} registerResponse
// @Failure 400 {object} common.ErrorResponse
// @Failure 409 {object} common.ErrorResponse
// @Router /v1/register [post]
func (h *AuthHandlers) Register(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRegisterBody))
	if err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	var env registerEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	switch env.Type {
	case registerTypeRestaurant:
		var req services.RegisterRestaurantRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return common.SendClientError(c, "Invalid request format")
		}
		result, err := h.registration.RegisterRestaurant(c.Request().Context(), &req)
		if err != nil {
			return respondError(c, h.logger, "register restaurant", err)
		}
		return c.JSON(http.StatusCreated, registerResponse{Success: true, Result: result})

	case registerTypeWaiter:
		var req services.RegisterWaiterRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return common.SendClientError(c, "Invalid request format")
		}
		c.Set(waiterRequestKey, &req)
		return h.registerWaiter(c)

	default:
		return common.SendValidationError(c, "type", "must be restaurant or waiter")
	}
}

// CreateWaiter is the admin-area route for adding a waiter.
func (h *AuthHandlers) CreateWaiter(c echo.Context) error {
	var req services.RegisterWaiterRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, "register waiter", err)
	}
	c.Set(waiterRequestKey, &req)
	return h.handleRegisterWaiter(c)
}

func (h *AuthHandlers) handleRegisterWaiter(c echo.Context) error {
	req, ok := c.Get(waiterRequestKey).(*services.RegisterWaiterRequest)
	if !ok {
		return common.SendClientError(c, "Invalid request format")
	}
	result, err := h.registration.RegisterWaiter(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.logger, "register waiter", err)
	}
	return c.JSON(http.StatusCreated, registerResponse{Success: true, Result: result})
}
