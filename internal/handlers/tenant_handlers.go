package handlers

import (
	"net/http"

	"tabletop/internal/models"
	"tabletop/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TenantHandlers serves the restaurant settings screen.
type TenantHandlers struct {
	tenantService services.TenantService
	logger        *zap.Logger
}

func NewTenantHandlers(tenantService services.TenantService, logger *zap.Logger) *TenantHandlers {
	return &TenantHandlers{tenantService: tenantService, logger: logger}
}

// GetSettings handles GET /admin/settings
func (h *TenantHandlers) GetSettings(c echo.Context) error {
	tenant, err := h.tenantService.GetSettings(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "get settings", err)
	}
	return c.JSON(http.StatusOK, tenant)
}

// UpdateSettings handles PUT /admin/settings
func (h *TenantHandlers) UpdateSettings(c echo.Context) error {
	var req models.TenantSettingsUpdate
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, "update settings", err)
	}
	tenant, err := h.tenantService.UpdateSettings(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, h.logger, "update settings", err)
	}
	return c.JSON(http.StatusOK, tenant)
}
