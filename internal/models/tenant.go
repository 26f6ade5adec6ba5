package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is one restaurant. Code is stored in canonical (trimmed, uppercased) form
// and never changes after registration.
type Tenant struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Code           string    `json:"code" db:"code"`
	Name           string    `json:"name" db:"name"`
	BankTransferID *string   `json:"bank_transfer_id" db:"bank_transfer_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TenantSettingsUpdate carries the editable tenant fields.
type TenantSettingsUpdate struct {
	Name           *string `json:"name"`
	BankTransferID *string `json:"bank_transfer_id"`
}
