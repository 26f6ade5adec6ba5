package repositories

import (
	"context"
	"time"

	"tabletop/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type OrderRepository interface {
	WithTx(q DBTX) OrderRepository
	// NextOrderNumber bumps the tenant's order sequence. Inside a transaction the
	// tenant row stays locked until commit, so numbers are gap-free per tenant.
	NextOrderNumber(ctx context.Context, tenantID uuid.UUID) (int, error)
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error)
	GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error)
	GetActiveByTable(ctx context.Context, tenantID, tableID uuid.UUID, forUpdate bool) (*models.Order, error)
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.Order, error)
	List(ctx context.Context, tenantID uuid.UUID, filter *models.OrderFilter) ([]*models.OrderSummary, error)
	// RecomputeTotal stores and returns the sum of quantity * price over the order's items.
	RecomputeTotal(ctx context.Context, tenantID, id uuid.UUID) (float64, error)
	MarkSent(ctx context.Context, tenantID, id uuid.UUID) error
	// MarkPaid moves a non-paid order to paid. It returns ErrNotFound when the
	// order is missing or already paid; paid_at and payment_method are never overwritten.
	MarkPaid(ctx context.Context, tenantID, id uuid.UUID, method models.PaymentMethod) (time.Time, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	PaidTotalSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (float64, int, error)
}

type orderRepo struct {
	db DBTX
}

func NewOrderRepo(db DBTX) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) WithTx(q DBTX) OrderRepository {
	return &orderRepo{db: q}
}

const orderColumns = `id, tenant_id, table_id, order_number, status, total_price, payment_method, created_by, created_at, updated_at, paid_at`

func (r *orderRepo) NextOrderNumber(ctx context.Context, tenantID uuid.UUID) (int, error) {
	var next int
	err := r.db.QueryRow(ctx, `UPDATE tenants SET order_seq = order_seq + 1 WHERE id = $1 RETURNING order_seq`, tenantID).Scan(&next)
	return next, translate(err)
}

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, tenant_id, table_id, order_number, status, total_price, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, order.ID, order.TenantID, order.TableID, order.OrderNumber, order.Status, order.CreatedBy).
		Scan(&order.CreatedAt, &order.UpdatedAt)
	return translate(err)
}

func (r *orderRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error) {
	return r.scanOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

func (r *orderRepo) GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error) {
	return r.scanOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE tenant_id = $1 AND id = $2 FOR UPDATE`, tenantID, id)
}

func (r *orderRepo) GetActiveByTable(ctx context.Context, tenantID, tableID uuid.UUID, forUpdate bool) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant_id = $1 AND table_id = $2 AND status <> 'paid'`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	return r.scanOne(ctx, query, tenantID, tableID)
}

func (r *orderRepo) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE tenant_id = $1 AND status <> 'paid' ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o := &models.Order{}
		if err := rows.Scan(&o.ID, &o.TenantID, &o.TableID, &o.OrderNumber, &o.Status, &o.TotalPrice, &o.PaymentMethod, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.PaidAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *orderRepo) List(ctx context.Context, tenantID uuid.UUID, filter *models.OrderFilter) ([]*models.OrderSummary, error) {
	if filter == nil {
		filter = &models.OrderFilter{}
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	q := psql.Select(
		"o.id", "o.tenant_id", "o.table_id", "o.order_number", "o.status", "o.total_price", "o.payment_method",
		"o.created_by", "o.created_at", "o.updated_at", "o.paid_at", "t.table_number", "COALESCE(s.name, '')",
	).
		From("orders o").
		Join("tables t ON t.id = o.table_id AND t.tenant_id = o.tenant_id").
		LeftJoin("staff s ON s.id = o.created_by").
		Where(sq.Eq{"o.tenant_id": tenantID}).
		OrderBy("o.created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	if filter.Status != nil {
		q = q.Where(sq.Eq{"o.status": *filter.Status})
	}
	if filter.TableID != nil {
		q = q.Where(sq.Eq{"o.table_id": *filter.TableID})
	}
	if filter.Since != nil {
		q = q.Where(sq.GtOrEq{"o.created_at": *filter.Since})
	}

	query, args, err := q.ToSql()
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

func (r *orderRepo) RecomputeTotal(ctx context.Context, tenantID, id uuid.UUID) (float64, error) {
	query := `
		UPDATE orders
		SET total_price = (
				SELECT COALESCE(SUM(quantity * price), 0)
				FROM order_items
				WHERE tenant_id = $1 AND order_id = $2
			),
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2
		RETURNING total_price
	`
	var total float64
	err := r.db.QueryRow(ctx, query, tenantID, id).Scan(&total)
	return total, translate(err)
}

func (r *orderRepo) MarkSent(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `
		UPDATE orders
		SET status = 'sent', updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND status = 'open'
	`
	_, err := r.db.Exec(ctx, query, tenantID, id)
	return translate(err)
}

func (r *orderRepo) MarkPaid(ctx context.Context, tenantID, id uuid.UUID, method models.PaymentMethod) (time.Time, error) {
	query := `
		UPDATE orders
		SET status = 'paid', payment_method = $3, paid_at = NOW(), updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND status <> 'paid'
		RETURNING paid_at
	`
	var paidAt time.Time
	err := r.db.QueryRow(ctx, query, tenantID, id, method).Scan(&paidAt)
	return paidAt, translate(err)
}

func (r *orderRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM orders WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	return translate(err)
}

func (r *orderRepo) PaidTotalSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (float64, int, error) {
	query := `
		SELECT COALESCE(SUM(total_price), 0), COUNT(*)
		FROM orders
		WHERE tenant_id = $1 AND status = 'paid' AND paid_at >= $2
	`
	var total float64
	var count int
	err := r.db.QueryRow(ctx, query, tenantID, since).Scan(&total, &count)
	return total, count, translate(err)
}

func (r *orderRepo) scanOne(ctx context.Context, query string, args ...any) (*models.Order, error) {
	o := &models.Order{}
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&o.ID, &o.TenantID, &o.TableID, &o.OrderNumber, &o.Status, &o.TotalPrice, &o.PaymentMethod, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt, &o.PaidAt)
	if err != nil {
		return nil, translate(err)
	}
	return o, nil
}
