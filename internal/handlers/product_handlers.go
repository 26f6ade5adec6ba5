package handlers

import (
	"net/http"

	"tabletop/internal/models"
	"tabletop/internal/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProductHandlers handles HTTP requests for the menu and stock
type ProductHandlers struct {
	productService services.ProductService
	logger         *zap.Logger
}

// NewProductHandlers creates a new product handlers instance
func NewProductHandlers(productService services.ProductService, logger *zap.Logger) *ProductHandlers {
	return &ProductHandlers{productService: productService, logger: logger}
}

// CreateProduct handles POST /admin/products
func (h *ProductHandlers) CreateProduct(c echo.Context) error {
	var req models.ProductInput
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, "create product", err)
	}
	product, err := h.productService.Create(c.Request().Context(), &req)
	if err != nil {
		return respondError(c, h.logger, "create product", err)
	}
	return c.JSON(http.StatusCreated, product)
}

// GetProduct handles GET /admin/products/:id
func (h *ProductHandlers) GetProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "get product", err)
	}
	product, err := h.productService.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, "get product", err)
	}
	return c.JSON(http.StatusOK, product)
}

// ListProducts handles GET /admin/products
func (h *ProductHandlers) ListProducts(c echo.Context) error {
	products, err := h.productService.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "list products", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// Menu handles GET /waiter/menu
func (h *ProductHandlers) Menu(c echo.Context) error {
	products, err := h.productService.Menu(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "load menu", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// UpdateProduct handles PUT /admin/products/:id
func (h *ProductHandlers) UpdateProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "update product", err)
	}
	var req models.ProductInput
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, "update product", err)
	}
	product, err := h.productService.Update(c.Request().Context(), id, &req)
	if err != nil {
		return respondError(c, h.logger, "update product", err)
	}
	return c.JSON(http.StatusOK, product)
}

// ToggleProduct handles POST /admin/products/:id/toggle
func (h *ProductHandlers) ToggleProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "toggle product", err)
	}
	product, err := h.productService.ToggleActive(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, "toggle product", err)
	}
	return c.JSON(http.StatusOK, product)
}

// UpdateStock handles PUT /admin/products/:id/stock
func (h *ProductHandlers) UpdateStock(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "update stock", err)
	}
	var req models.StockUpdate
	if err := bindJSON(c, &req); err != nil {
		return respondError(c, h.logger, "update stock", err)
	}
	product, err := h.productService.UpdateStock(c.Request().Context(), id, &req)
	if err != nil {
		return respondError(c, h.logger, "update stock", err)
	}
	return c.JSON(http.StatusOK, &models.ProductWithStock{Product: product, Status: product.StockStatus()})
}

// ListStock handles GET /admin/stock; ?low=true restricts it to low stock.
func (h *ProductHandlers) ListStock(c echo.Context) error {
	var (
		rows []*models.ProductWithStock
		err  error
	)
	if c.QueryParam("low") == "true" {
		rows, err = h.productService.LowStock(c.Request().Context())
	} else {
		rows, err = h.productService.ListStock(c.Request().Context())
	}
	if err != nil {
		return respondError(c, h.logger, "list stock", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"products": rows,
		"count":    len(rows),
	})
}

// DeleteProduct handles DELETE /admin/products/:id
func (h *ProductHandlers) DeleteProduct(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, h.logger, "delete product", err)
	}
	if err := h.productService.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, h.logger, "delete product", err)
	}
	return c.NoContent(http.StatusNoContent)
}
