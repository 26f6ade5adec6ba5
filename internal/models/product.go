package models

import (
	"time"

	"github.com/google/uuid"
)

// LowStockThreshold is the quantity below which a tracked product is reported as low.
const LowStockThreshold = 5

type StockStatus string

const (
	StockUnlimited StockStatus = "unlimited"
	StockOut       StockStatus = "out_of_stock"
	StockLow       StockStatus = "low_stock"
	StockAvailable StockStatus = "in_stock"
)

type Product struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TenantID      uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name          string    `json:"name" db:"name"`
	Price         float64   `json:"price" db:"price"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	StockEnabled  bool      `json:"stock_enabled" db:"stock_enabled"`
	StockQuantity int       `json:"stock_quantity" db:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// StockStatus reports the display label for the product's stock level.
func (p *Product) StockStatus() StockStatus {
	switch {
	case !p.StockEnabled:
		return StockUnlimited
	case p.StockQuantity <= 0:
		return StockOut
	case p.StockQuantity < LowStockThreshold:
		return StockLow
	default:
		return StockAvailable
	}
}

// ProductInput is the admin-editable part of a product.
type ProductInput struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	IsActive *bool   `json:"is_active"`
}

// StockUpdate changes tracking and/or quantity. Nil fields are left untouched.
type StockUpdate struct {
	StockEnabled  *bool `json:"stock_enabled"`
	StockQuantity *int  `json:"stock_quantity"`
}

// ProductWithStock is the admin stock screen row.
type ProductWithStock struct {
	*Product
	Status StockStatus `json:"stock_status"`
}
