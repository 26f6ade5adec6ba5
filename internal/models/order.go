package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderOpen OrderStatus = "open"
	OrderSent OrderStatus = "sent"
	OrderPaid OrderStatus = "paid"
)

func (s OrderStatus) Valid() bool {
	return s == OrderOpen || s == OrderSent || s == OrderPaid
}

type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCreditCard   PaymentMethod = "credit_card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCreditCard || m == PaymentBankTransfer
}

// Order is one table visit. TotalPrice is derived from the items and is only
// ever written by the database recomputation.
type Order struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	TenantID      uuid.UUID      `json:"tenant_id" db:"tenant_id"`
	TableID       uuid.UUID      `json:"table_id" db:"table_id"`
	OrderNumber   int            `json:"order_number" db:"order_number"`
	Status        OrderStatus    `json:"status" db:"status"`
	TotalPrice    float64        `json:"total_price" db:"total_price"`
	PaymentMethod *PaymentMethod `json:"payment_method" db:"payment_method"`
	CreatedBy     *uuid.UUID     `json:"created_by" db:"created_by"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
	PaidAt        *time.Time     `json:"paid_at" db:"paid_at"`
}

// IsActive reports whether the order still holds its table.
func (o *Order) IsActive() bool {
	return o.Status != OrderPaid
}

// OrderDetail is an order with its items, as returned to clients.
type OrderDetail struct {
	*Order
	TableNumber int          `json:"table_number"`
	Items       []*OrderItem `json:"items"`
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status  *OrderStatus `json:"status"`
	TableID *uuid.UUID   `json:"table_id"`
	Since   *time.Time   `json:"since"`
	Limit   int          `json:"limit"`
	Offset  int          `json:"offset"`
}

// OrderSummary is a listing row with the table number and creator name joined in.
type OrderSummary struct {
	Order
	TableNumber   int    `json:"table_number"`
	CreatedByName string `json:"created_by_name"`
}

// DailyTotal is the paid revenue since local midnight.
type DailyTotal struct {
	Date       string  `json:"date"`
	Total      float64 `json:"total"`
	OrderCount int     `json:"order_count"`
}
