package handlers

import (
	"net/http"

	"tabletop/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StaffHandlers serves profiles and the waiter roster.
type StaffHandlers struct {
	staffService services.StaffService
	logger       *zap.Logger
}

func NewStaffHandlers(staffService services.StaffService, logger *zap.Logger) *StaffHandlers {
	return &StaffHandlers{staffService: staffService, logger: logger}
}

// Me handles GET /me
func (h *StaffHandlers) Me(c echo.Context) error {
	staff, err := h.staffService.Me(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "load profile", err)
	}
	return c.JSON(http.StatusOK, staff)
}

// ListStaff handles GET /admin/staff
func (h *StaffHandlers) ListStaff(c echo.Context) error {
	staff, err := h.staffService.ListStaff(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "list staff", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"staff": staff,
		"count": len(staff),
	})
}

// ListWaiters handles GET /admin/waiters
func (h *StaffHandlers) ListWaiters(c echo.Context) error {
	waiters, err := h.staffService.ListWaiters(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "list waiters", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"waiters": waiters,
		"count":   len(waiters),
	})
}

// RemoveWaiter handles DELETE /admin/waiters/:id
func (h *StaffHandlers) RemoveWaiter(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "remove waiter", err)
	}
	if err := h.staffService.RemoveWaiter(c.Request().Context(), id); err != nil {
		return respondError(c, h.logger, "remove waiter", err)
	}
	return c.NoContent(http.StatusNoContent)
}
