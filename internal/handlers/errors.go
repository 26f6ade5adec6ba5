package handlers

import (
	"errors"
	"net/http"

	"tabletop/internal/access"
	"tabletop/internal/common"
	"tabletop/internal/identity"
	"tabletop/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var notFoundErrors = []error{
	services.ErrTenantNotFound,
	services.ErrStaffNotFound,
	services.ErrTableNotFound,
	services.ErrProductNotFound,
	services.ErrOrderNotFound,
	services.ErrItemNotFound,
	services.ErrNoActiveOrder,
}

var conflictErrors = []error{
	services.ErrOrderAlreadyPaid,
	services.ErrOrderPaid,
	services.ErrOrderSent,
	services.ErrItemAlreadySent,
	services.ErrEmptyOrder,
	services.ErrInsufficientStock,
	services.ErrProductInactive,
	services.ErrActiveDerivedFromStock,
	services.ErrDuplicateTenantCode,
	services.ErrDuplicateTableNumber,
	services.ErrTableInUse,
	services.ErrTableBusy,
	services.ErrTableHasOrders,
	services.ErrProductInUse,
	services.ErrNotWaiter,
	services.ErrCannotRemoveSelf,
}

// respondError maps a service error onto the JSON error envelope. Only
// sentinel messages reach the client; anything unrecognised is logged and
// reported as a generic failure of op.
func respondError(c echo.Context, logger *zap.Logger, op string, err error) error {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		return common.SendValidationError(c, validationErr.Field, validationErr.Message)
	}

	var providerErr *identity.ProviderError
	if errors.As(err, &providerErr) {
		return common.SendProviderError(c, providerErr.Status, providerErr.Message)
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	switch {
	case errors.Is(err, access.ErrUnauthenticated),
		errors.Is(err, services.ErrAccessDenied),
		errors.Is(err, services.ErrSessionNotFound):
		return common.SendAccessDenied(c)
	case errors.Is(err, access.ErrForbidden):
		return common.SendForbiddenError(c)
	case errors.Is(err, services.ErrRateLimited):
		return common.SendTooManyRequests(c)
	case errors.Is(err, services.ErrInvalidTenantCode):
		return common.SendClientError(c, services.ErrInvalidTenantCode.Error())
	}

	for _, sentinel := range notFoundErrors {
		if errors.Is(err, sentinel) {
			return c.JSON(http.StatusNotFound, common.CreateErrorResponse("NOT_FOUND", sentinel.Error(), nil))
		}
	}
	for _, sentinel := range conflictErrors {
		if errors.Is(err, sentinel) {
			return common.SendConflictError(c, sentinel.Error())
		}
	}

	logger.Error("request failed", zap.String("op", op), zap.Error(err))
	return common.SendServerError(c, common.SecureErrorMessage(op, err).Error())
}

// parseID reads a uuid path parameter.
func parseID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := common.ValidateUUID(c.Param(name), name)
	if err != nil {
		return uuid.Nil, &services.ValidationError{Field: name, Message: err.Error()}
	}
	return id, nil
}

// bindJSON decodes the request body, reporting malformed input as a validation error.
func bindJSON(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return &services.ValidationError{Field: "body", Message: "invalid request format"}
	}
	return nil
}
