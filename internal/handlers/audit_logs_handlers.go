package handlers

import (
	"net/http"
	"strconv"
	"time"

	"tabletop/internal/common"
	"tabletop/internal/models"
	"tabletop/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuditLogsHandlers handles audit logs related HTTP requests
type AuditLogsHandlers struct {
	auditLogsService services.AuditLogsService
	logger           *zap.Logger
}

// NewAuditLogsHandlers creates a new audit logs handlers instance
func NewAuditLogsHandlers(auditLogsService services.AuditLogsService, logger *zap.Logger) *AuditLogsHandlers {
	return &AuditLogsHandlers{auditLogsService: auditLogsService, logger: logger}
}

// ListAuditLogs handles GET /admin/audit-logs with filtering and pagination
func (h *AuditLogsHandlers) ListAuditLogs(c echo.Context) error {
	filters := &models.AuditLogFilters{}
	if table := c.QueryParam("table"); table != "" {
		filters.TableName = &table
	}
	if recordID := c.QueryParam("record_id"); recordID != "" {
		filters.RecordID = &recordID
	}
	if action := c.QueryParam("action"); action != "" {
		filters.Action = &action
	}
	if userID := c.QueryParam("user_id"); userID != "" {
		uid, err := uuid.Parse(userID)
		if err != nil {
			return common.SendValidationError(c, "user_id", "is not a valid UUID")
		}
		filters.ChangedBy = &uid
	}
	if startDate := c.QueryParam("start_date"); startDate != "" {
		sd, err := time.Parse(time.RFC3339, startDate)
		if err != nil {
			return common.SendValidationError(c, "start_date", "must be RFC3339")
		}
		filters.StartDate = &sd
	}
	if endDate := c.QueryParam("end_date"); endDate != "" {
		ed, err := time.Parse(time.RFC3339, endDate)
		if err != nil {
			return common.SendValidationError(c, "end_date", "must be RFC3339")
		}
		filters.EndDate = &ed
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}
	filters.Limit = limit
	filters.Offset = offset

	logs, err := h.auditLogsService.ListAuditLogs(c.Request().Context(), filters)
	if err != nil {
		return respondError(c, h.logger, "list audit logs", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   logs,
		"total":  len(logs),
		"limit":  filters.Limit,
		"offset": filters.Offset,
	})
}
