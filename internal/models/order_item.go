package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is one product line. Price is captured when the line is added and
// never follows later product price edits. IsSentToKitchen only moves false -> true.
type OrderItem struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	TenantID        uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	OrderID         uuid.UUID  `json:"order_id" db:"order_id"`
	ProductID       uuid.UUID  `json:"product_id" db:"product_id"`
	ProductName     string     `json:"product_name" db:"product_name"`
	Quantity        int        `json:"quantity" db:"quantity"`
	Price           float64    `json:"price" db:"price"`
	IsSentToKitchen bool       `json:"is_sent_to_kitchen" db:"is_sent_to_kitchen"`
	SentAt          *time.Time `json:"sent_at" db:"sent_at"`
	Note            *string    `json:"note" db:"note"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// LineTotal is quantity times captured price.
func (i *OrderItem) LineTotal() float64 {
	return RoundMoney(float64(i.Quantity) * i.Price)
}

// AddItemInput is a waiter's request to add a product line.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Note      *string   `json:"note"`
}
