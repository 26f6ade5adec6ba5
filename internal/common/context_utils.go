package common

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"tabletop/internal/models"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	TenantIDKey  contextKey = "tenant_id"
	RoleKey      contextKey = "role"
	SessionIDKey contextKey = "session_id"
)

// Principal is the authenticated caller as established by the session middleware.
type Principal struct {
	UserID    uuid.UUID
	TenantID  uuid.UUID
	Role      models.Role
	SessionID string
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details,omitempty"`
	} `json:"error"`
}

// CreateErrorResponse creates a standardized error response
func CreateErrorResponse(code string, message string, details map[string]string) *ErrorResponse {
	var resp ErrorResponse
	resp.Error.Code = code
	resp.Error.Message = message
	resp.Error.Details = details
	return &resp
}

// SendValidationError sends a validation error response
func SendValidationError(c echo.Context, field, message string) error {
	details := map[string]string{
		field: message,
	}
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("VALIDATION_ERROR", "Validation failed", details))
}

// SendClientError sends a client error response
func SendClientError(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, CreateErrorResponse("CLIENT_ERROR", message, nil))
}

// SendServerError sends a server error response
func SendServerError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, CreateErrorResponse("SERVER_ERROR", message, nil))
}

// SendNotFoundError sends a not found error response
func SendNotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, CreateErrorResponse("NOT_FOUND", fmt.Sprintf("%s not found", resource), nil))
}

// SendConflictError sends a conflict response for integrity and state violations
func SendConflictError(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, CreateErrorResponse("CONFLICT", message, nil))
}

// SendAccessDenied sends the generic authorization failure
func SendAccessDenied(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("ACCESS_DENIED", "Access denied", nil))
}

// SendForbiddenError sends a role mismatch response
func SendForbiddenError(c echo.Context) error {
	return c.JSON(http.StatusForbidden, CreateErrorResponse("FORBIDDEN", "Insufficient permissions", nil))
}

// SendProviderError relays an identity provider message unchanged
func SendProviderError(c echo.Context, status int, message string) error {
	if status < 400 || status > 599 {
		status = http.StatusBadGateway
	}
	return c.JSON(status, CreateErrorResponse("PROVIDER_ERROR", message, nil))
}

// SendTooManyRequests sends a rate limit response
func SendTooManyRequests(c echo.Context) error {
	return c.JSON(http.StatusTooManyRequests, CreateErrorResponse("RATE_LIMITED", "Too many attempts, try again later", nil))
}

// SendUnauthorizedError sends an unauthorized error response
func SendUnauthorizedError(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, CreateErrorResponse("UNAUTHORIZED", "Unauthorized access", nil))
}

// ValidateUUID validates and parses an id path or body parameter
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, fmt.Errorf("%s is required", fieldName)
	}
	if len(idStr) != 36 {
		return uuid.Nil, fmt.Errorf("%s must be exactly 36 characters (including hyphens)", fieldName)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid UUID", fieldName)
	}
	return id, nil
}

// ValidatePositiveInteger validates positive integer values with upper bounds
func ValidatePositiveInteger(value int, fieldName string, maxValue int) error {
	if value <= 0 {
		return fmt.Errorf("%s must be positive", fieldName)
	}
	if value > maxValue {
		return fmt.Errorf("%s cannot exceed %d", fieldName, maxValue)
	}
	return nil
}

// ValidateNonNegativeInteger validates counters such as stock quantities
func ValidateNonNegativeInteger(value int, fieldName string, maxValue int) error {
	if value < 0 {
		return fmt.Errorf("%s cannot be negative", fieldName)
	}
	if value > maxValue {
		return fmt.Errorf("%s cannot exceed %d", fieldName, maxValue)
	}
	return nil
}

// ValidatePrice validates a money amount with two decimals at most
func ValidatePrice(value float64, fieldName string, maxValue float64) error {
	if value < 0 {
		return fmt.Errorf("%s cannot be negative", fieldName)
	}
	if value > maxValue {
		return fmt.Errorf("%s cannot exceed %.2f", fieldName, maxValue)
	}
	if models.RoundMoney(value) != value {
		return fmt.Errorf("%s cannot have more than two decimals", fieldName)
	}
	return nil
}

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateOptionalString trims an optional field in place and checks its length
func ValidateOptionalString(value *string, fieldName string, maxLength int) error {
	if value != nil {
		*value = strings.TrimSpace(*value)
		if len(*value) > maxLength {
			return fmt.Errorf("%s cannot exceed %d characters", fieldName, maxLength)
		}
	}
	return nil
}

// NullIfEmpty trims s and returns nil when nothing is left.
func NullIfEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// NormalizeTenantCode is the canonical form used for storage and lookup.
func NormalizeTenantCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// SafeString safely handles string pointer operations
func SafeString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SecureErrorMessage creates standardized error messages to prevent information leakage
func SecureErrorMessage(operation string, err error) error {
	if err == nil {
		return nil
	}
	// Caller logs err; the client only sees the operation name.
	return fmt.Errorf("failed to %s: operation could not be completed", operation)
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	if offset > 1000000 {
		return 0, 0, fmt.Errorf("offset cannot exceed 1,000,000")
	}
	return limit, offset, nil
}

// WithPrincipal stores the authenticated caller on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, p.UserID)
	ctx = context.WithValue(ctx, TenantIDKey, p.TenantID)
	ctx = context.WithValue(ctx, RoleKey, p.Role)
	return context.WithValue(ctx, SessionIDKey, p.SessionID)
}

// PrincipalFromContext returns the caller stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	userID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	tenantID, ok := GetTenantIDFromContext(ctx)
	if !ok {
		return Principal{}, false
	}
	role, _ := ctx.Value(RoleKey).(models.Role)
	sid, _ := ctx.Value(SessionIDKey).(string)
	return Principal{UserID: userID, TenantID: tenantID, Role: role, SessionID: sid}, true
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// GetTenantIDFromContext extracts the tenant ID from the request context
func GetTenantIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(uuid.UUID)
	return tenantID, ok
}
