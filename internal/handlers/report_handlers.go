package handlers

import (
	"net/http"

	"tabletop/internal/common"
	"tabletop/internal/models"
	"tabletop/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ReportHandlers serves sales reports and their nightly archives.
type ReportHandlers struct {
	reportService  services.ReportService
	archiveService services.ReportArchiveService
	logger         *zap.Logger
}

func NewReportHandlers(reportService services.ReportService, archiveService services.ReportArchiveService, logger *zap.Logger) *ReportHandlers {
	return &ReportHandlers{reportService: reportService, archiveService: archiveService, logger: logger}
}

// Sales handles GET /admin/reports?range=today|week|month
func (h *ReportHandlers) Sales(c echo.Context) error {
	rng := models.ReportRange(c.QueryParam("range"))
	if rng == "" {
		rng = models.RangeToday
	}
	switch rng {
	case models.RangeToday, models.RangeWeek, models.RangeMonth:
	default:
		return common.SendValidationError(c, "range", "must be today, week or month")
	}

	report, err := h.reportService.Sales(c.Request().Context(), rng)
	if err != nil {
		return respondError(c, h.logger, "build report", err)
	}
	return c.JSON(http.StatusOK, report)
}

// ListArchives handles GET /admin/reports/archives
func (h *ReportHandlers) ListArchives(c echo.Context) error {
	if h.archiveService == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{"archives": []interface{}{}, "count": 0})
	}
	archives, err := h.archiveService.ListArchives(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "list report archives", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"archives": archives,
		"count":    len(archives),
	})
}
