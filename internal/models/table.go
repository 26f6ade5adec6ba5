package models

import (
	"time"

	"github.com/google/uuid"
)

type TableStatus string

const (
	TableEmpty    TableStatus = "empty"
	TableOccupied TableStatus = "occupied"
)

// Table is a seating unit. Status is a cache of "has a non-paid order"; readers
// that need the truth use Occupied on TableView instead.
type Table struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	TenantID    uuid.UUID   `json:"tenant_id" db:"tenant_id"`
	TableNumber int         `json:"table_number" db:"table_number"`
	Status      TableStatus `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// TableView is a table with occupancy derived from its order set.
type TableView struct {
	Table
	Occupied      bool       `json:"occupied"`
	ActiveOrderID *uuid.UUID `json:"active_order_id,omitempty"`
}
