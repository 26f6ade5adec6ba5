package models

import (
	"time"

	"github.com/google/uuid"
)

// DashboardTable is one tile of the realtime table dashboard.
type DashboardTable struct {
	TableView
	Order *OrderDetail `json:"order,omitempty"`
}

// DashboardSnapshot is the full state sent to dashboard clients on every refresh.
type DashboardSnapshot struct {
	TenantID      uuid.UUID         `json:"tenant_id"`
	Tables        []*DashboardTable `json:"tables"`
	OccupiedCount int               `json:"occupied_count"`
	GeneratedAt   time.Time         `json:"generated_at"`
}
