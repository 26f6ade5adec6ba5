package handlers

import (
	"net/http"

	"tabletop/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// TableHandlers serves table management.
type TableHandlers struct {
	tableService services.TableService
	logger       *zap.Logger
}

func NewTableHandlers(tableService services.TableService, logger *zap.Logger) *TableHandlers {
	return &TableHandlers{tableService: tableService, logger: logger}
}

type createTableRequest struct {
	TableNumber int `json:"table_number"`
}

// CreateTable handles POST /admin/tables
func (h *TableHandlers) CreateTable(c echo.Context) error {
	var req createTableRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, "create table", err)
	}
	table, err := h.tableService.Create(c.Request().Context(), req.TableNumber)
	if err != nil {
		return respondError(c, h.logger, "create table", err)
	}
	return c.JSON(http.StatusCreated, table)
}

// ListTables handles GET /admin/tables and GET /waiter/tables
func (h *TableHandlers) ListTables(c echo.Context) error {
	tables, err := h.tableService.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "list tables", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"tables": tables,
		"count":  len(tables),
	})
}

// GetTable handles GET /waiter/tables/:id
func (h *TableHandlers) GetTable(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "get table", err)
	}
	table, err := h.tableService.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, "get table", err)
	}
	return c.JSON(http.StatusOK, table)
}

// DeleteTable handles DELETE /admin/tables/:id
func (h *TableHandlers) DeleteTable(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "delete table", err)
	}
	if err := h.tableService.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, h.logger, "delete table", err)
	}
	return c.NoContent(http.StatusNoContent)
}
