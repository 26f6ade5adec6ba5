package handlers

import (
	"net/http"
	"strconv"

	"tabletop/internal/common"
	"tabletop/internal/models"
	"tabletop/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// OrderHandlers serves the waiter order flow and the admin order screens.
type OrderHandlers struct {
	orderService services.OrderService
	logger       *zap.Logger
}

func NewOrderHandlers(orderService services.OrderService, logger *zap.Logger) *OrderHandlers {
	return &OrderHandlers{orderService: orderService, logger: logger}
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type payRequest struct {
	PaymentMethod models.PaymentMethod `json:"payment_method"`
}

// GetActiveOrder handles GET /waiter/tables/:id/order. A table without an
// order yields 404.
func (h *OrderHandlers) GetActiveOrder(c echo.Context) error {
	tableID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "load active order", err)
	}
	order, err := h.orderService.GetActiveOrder(c.Request().Context(), tableID)
	if err != nil {
		return respondError(c, h.logger, "load active order", err)
	}
	return c.JSON(http.StatusOK, order)
}

// AddItem godoc
// @Summary Add a product line to a table's order, opening one if needed
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "table id"
// @Param request body models.AddItemInput true "line"
// @Success 200 {object} models.OrderDetail
// @Failure 409 {object} common.ErrorResponse
// @Router /v1/waiter/tables/{id}/items [post]
func (h *OrderHandlers) AddItem(c echo.Context) error {
	tableID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "add item", err)
	}
	var req models.AddItemInput
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, "add item", err)
	}
	order, err := h.orderService.AddItem(c.Request().Context(), tableID, &req)
	if err != nil {
		return respondError(c, h.logger, "add item", err)
	}
	return c.JSON(http.StatusOK, order)
}

// AddItemToOrder handles POST /waiter/orders/:id/items
func (h *OrderHandlers) AddItemToOrder(c echo.Context) error {
	orderID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "add item", err)
	}
	var req models.AddItemInput
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, "add item", err)
	}
	order, err := h.orderService.AddItemToOrder(c.Request().Context(), orderID, &req)
	if err != nil {
		return respondError(c, h.logger, "add item", err)
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateItem handles PATCH /waiter/items/:id
func (h *OrderHandlers) UpdateItem(c echo.Context) error {
	itemID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "update item", err)
	}
	var req updateItemRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, "update item", err)
	}
	order, err := h.orderService.UpdateItemQuantity(c.Request().Context(), itemID, req.Quantity)
	if err != nil {
		return respondError(c, h.logger, "update item", err)
	}
	return c.JSON(http.StatusOK, order)
}

// RemoveItem handles DELETE /waiter/items/:id. When the order is left empty
// and discarded the response is 204.
func (h *OrderHandlers) RemoveItem(c echo.Context) error {
	itemID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "remove item", err)
	}
	order, err := h.orderService.RemoveItem(c.Request().Context(), itemID)
	if err != nil {
		return respondError(c, h.logger, "remove item", err)
	}
	if order == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, order)
}

// SendToKitchen handles POST /waiter/orders/:id/send
func (h *OrderHandlers) SendToKitchen(c echo.Context) error {
	orderID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "send order", err)
	}
	order, err := h.orderService.SendToKitchen(c.Request().Context(), orderID)
	if err != nil {
		return respondError(c, h.logger, "send order", err)
	}
	return c.JSON(http.StatusOK, order)
}

// GetOrder handles GET /waiter/orders/:id and GET /admin/orders/:id
func (h *OrderHandlers) GetOrder(c echo.Context) error {
	orderID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "get order", err)
	}
	order, err := h.orderService.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return respondError(c, h.logger, "get order", err)
	}
	return c.JSON(http.StatusOK, order)
}

// Pay godoc
// @Summary Settle an order
// @Tags orders
// @Accept json
// @Produce json
// @Param id path string true "order id"
// @Param request body payRequest true "payment method: cash, credit_card or bank_transfer"
// @Success 200 {object} models.OrderDetail
// @Failure 409 {object} common.ErrorResponse
// @Router /v1/admin/orders/{id}/pay [post]
func (h *OrderHandlers) Pay(c echo.Context) error {
	orderID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "pay order", err)
	}
	var req payRequest
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, "pay order", err)
	}
	order, err := h.orderService.Pay(c.Request().Context(), orderID, req.PaymentMethod)
	if err != nil {
		return respondError(c, h.logger, "pay order", err)
	}
	return c.JSON(http.StatusOK, order)
}

// ListOrders handles GET /admin/orders?status=&table_id=&limit=&offset=
func (h *OrderHandlers) ListOrders(c echo.Context) error {
	filter := &models.OrderFilter{}
	if status := c.QueryParam("status"); status != "" {
		s := models.OrderStatus(status)
		if !s.Valid() {
			return common.SendValidationError(c, "status", "must be open, sent or paid")
		}
		filter.Status = &s
	}
	if tableID := c.QueryParam("table_id"); tableID != "" {
		id, err := common.ValidateUUID(tableID, "table_id")
		if err != nil {
			return common.SendValidationError(c, "table_id", err.Error())
		}
		filter.TableID = &id
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, offset, err := common.ValidatePaginationParams(limit, offset)
	if err != nil {
		return common.SendValidationError(c, "offset", err.Error())
	}
	filter.Limit = limit
	filter.Offset = offset

	orders, err := h.orderService.ListOrders(c.Request().Context(), filter)
	if err != nil {
		return respondError(c, h.logger, "list orders", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
		"limit":  limit,
		"offset": offset,
	})
}

// DailyTotal handles GET /admin/orders/daily-total
func (h *OrderHandlers) DailyTotal(c echo.Context) error {
	total, err := h.orderService.DailyTotal(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "load daily total", err)
	}
	return c.JSON(http.StatusOK, total)
}
