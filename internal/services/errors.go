package services

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTenantCode      = errors.New("invalid code")
	ErrAccessDenied           = errors.New("access denied")
	ErrRateLimited            = errors.New("too many login attempts")
	ErrSessionNotFound        = errors.New("session not found")
	ErrTenantNotFound         = errors.New("tenant not found")
	ErrStaffNotFound          = errors.New("staff member not found")
	ErrTableNotFound          = errors.New("table not found")
	ErrProductNotFound        = errors.New("product not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrItemNotFound           = errors.New("order item not found")
	ErrNoActiveOrder          = errors.New("table has no active order")
	ErrOrderPaid              = errors.New("order is paid")
	ErrOrderAlreadyPaid       = errors.New("order already paid")
	ErrOrderSent              = errors.New("order was already sent to the kitchen")
	ErrItemAlreadySent        = errors.New("item was already sent to the kitchen")
	ErrEmptyOrder             = errors.New("order has no items")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrProductInactive        = errors.New("product is not available")
	ErrActiveDerivedFromStock = errors.New("availability follows stock while stock tracking is enabled")
	ErrDuplicateTenantCode    = errors.New("restaurant code already exists")
	ErrDuplicateTableNumber   = errors.New("table number already exists")
	ErrTableInUse             = errors.New("table has an active order")
	ErrTableBusy              = errors.New("table already has an active order")
	ErrTableHasOrders         = errors.New("table has order history")
	ErrProductInUse           = errors.New("product is referenced by orders")
	ErrNotWaiter              = errors.New("staff member is not a waiter")
	ErrCannotRemoveSelf       = errors.New("cannot remove your own account")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// invalidErr wraps a validator error from the common package.
func invalidErr(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}
