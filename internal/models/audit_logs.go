package models

import (
	"time"

	"github.com/google/uuid"
)

// JSONB holds free-form values stored in jsonb columns.
type JSONB map[string]interface{}

// AuditLog records a sensitive change made on behalf of a staff member.
type AuditLog struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TenantID  uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	TableName string     `json:"table_name" db:"table_name"`
	RecordID  string     `json:"record_id" db:"record_id"`
	Action    string     `json:"action" db:"action"`
	NewValues JSONB      `json:"new_values" db:"new_values"`
	OldValues JSONB      `json:"old_values" db:"old_values"`
	ChangedBy *uuid.UUID `json:"changed_by" db:"changed_by"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

const (
	ActionInsert = "INSERT"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"

	ActionTenantRegistered       = "TENANT_REGISTERED"
	ActionProfileAutoProvisioned = "PROFILE_AUTO_PROVISIONED"
	ActionOrderPaid              = "ORDER_PAID"
	ActionLoginRejected          = "LOGIN_REJECTED"
)

type AuditLogFilters struct {
	TableName *string    `json:"table_name"`
	RecordID  *string    `json:"record_id"`
	Action    *string    `json:"action"`
	ChangedBy *uuid.UUID `json:"changed_by"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}
