package models

import (
	"time"

	"github.com/google/uuid"
)

type ReportRange string

const (
	RangeToday ReportRange = "today"
	RangeWeek  ReportRange = "week"
	RangeMonth ReportRange = "month"
)

// WaiterStats aggregates paid orders per staff member.
type WaiterStats struct {
	StaffID    *uuid.UUID `json:"staff_id" db:"staff_id"`
	StaffName  string     `json:"staff_name" db:"staff_name"`
	OrderCount int        `json:"order_count" db:"order_count"`
	Revenue    float64    `json:"revenue" db:"revenue"`
}

// PaymentMethodStats aggregates paid orders per payment method.
type PaymentMethodStats struct {
	Method     PaymentMethod `json:"method" db:"method"`
	OrderCount int           `json:"order_count" db:"order_count"`
	Revenue    float64       `json:"revenue" db:"revenue"`
}

// SalesReport summarizes paid orders in a period.
type SalesReport struct {
	Range             ReportRange           `json:"range"`
	From              time.Time             `json:"from"`
	To                time.Time             `json:"to"`
	TotalRevenue      float64               `json:"total_revenue"`
	OrderCount        int                   `json:"order_count"`
	AverageOrderValue float64               `json:"average_order_value"`
	Waiters           []*WaiterStats        `json:"waiters"`
	PaymentMethods    []*PaymentMethodStats `json:"payment_methods"`
}
