package repositories

import (
	"context"
	"time"

	"tabletop/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// ReportRepository aggregates paid orders. Every query counts an order once,
// keyed by its id, no matter how many times payment was attempted.
type ReportRepository interface {
	Summary(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (revenue float64, count int, err error)
	WaiterStats(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*models.WaiterStats, error)
	PaymentMethodStats(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*models.PaymentMethodStats, error)
	PaidOrders(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*models.OrderSummary, error)
}

type reportRepo struct {
	db DBTX
}

func NewReportRepo(db DBTX) ReportRepository {
	return &reportRepo{db: db}
}

func paidBetween(tenantID uuid.UUID, from, to time.Time) sq.And {
	return sq.And{
		sq.Eq{"o.tenant_id": tenantID},
		sq.Eq{"o.status": models.OrderPaid},
		sq.GtOrEq{"o.paid_at": from},
		sq.Lt{"o.paid_at": to},
	}
}

func (r *reportRepo) Summary(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (float64, int, error) {
	query, args, err := psql.Select("COALESCE(SUM(o.total_price), 0)", "COUNT(DISTINCT o.id)").
		From("orders o").
		Where(paidBetween(tenantID, from, to)).
		ToSql()
	if err != nil {
		return 0, 0, err
	}

	var revenue float64
	var count int
	err = r.db.QueryRow(ctx, query, args...).Scan(&revenue, &count)
	return revenue, count, translate(err)
}

func (r *reportRepo) WaiterStats(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*models.WaiterStats, error) {
	query, args, err := psql.Select("o.created_by", "COALESCE(s.name, '')", "COUNT(DISTINCT o.id)", "COALESCE(SUM(o.total_price), 0)").
		From("orders o").
		LeftJoin("staff s ON s.id = o.created_by").
		Where(paidBetween(tenantID, from, to)).
		GroupBy("o.created_by", "s.name").
		OrderBy("4 DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var stats []*models.WaiterStats
	for rows.Next() {
		s := &models.WaiterStats{}
		if err := rows.Scan(&s.StaffID, &s.StaffName, &s.OrderCount, &s.Revenue); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *reportRepo) PaymentMethodStats(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*models.PaymentMethodStats, error) {
	query, args, err := psql.Select("o.payment_method", "COUNT(DISTINCT o.id)", "COALESCE(SUM(o.total_price), 0)").
		From("orders o").
		Where(paidBetween(tenantID, from, to)).
		GroupBy("o.payment_method").
		OrderBy("o.payment_method").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var stats []*models.PaymentMethodStats
	for rows.Next() {
		s := &models.PaymentMethodStats{}
		if err := rows.Scan(&s.Method, &s.OrderCount, &s.Revenue); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *reportRepo) PaidOrders(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*models.OrderSummary, error) {
	query, args, err := psql.Select(
		"o.id", "o.tenant_id", "o.table_id", "o.order_number", "o.status", "o.total_price", "o.payment_method",
		"o.created_by", "o.created_at", "o.updated_at", "o.paid_at", "t.table_number", "COALESCE(s.name, '')",
	).
		From("orders o").
		Join("tables t ON t.id = o.table_id AND t.tenant_id = o.tenant_id").
		LeftJoin("staff s ON s.id = o.created_by").
		Where(paidBetween(tenantID, from, to)).
		OrderBy("o.paid_at").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var orders []*models.OrderSummary
	for rows.Next() {
		o := &models.OrderSummary{}
		if err := rows.Scan(&o.ID, &o.TenantID, &o.TableID, &o.OrderNumber, &o.Status, &o.TotalPrice, &o.PaymentMethod,
			&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.TableNumber, &o.CreatedByName); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
