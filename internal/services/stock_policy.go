package services

import "tabletop/internal/models"

// ApplyStockPolicy derives availability from stock for tracked products. For
// untracked products is_active stays a manual flag and the quantity is only shown.
func ApplyStockPolicy(p *models.Product) {
	if p.StockEnabled {
		p.IsActive = p.StockQuantity > 0
	}
}

// WithStockStatus decorates products with their stock label.
func WithStockStatus(products []*models.Product) []*models.ProductWithStock {
	out := make([]*models.ProductWithStock, 0, len(products))
	for _, p := range products {
		out = append(out, &models.ProductWithStock{Product: p, Status: p.StockStatus()})
	}
	return out
}
