package repositories

import (
	"context"

	"tabletop/internal/models"

	"github.com/google/uuid"
)

type OrderItemRepository interface {
	WithTx(q DBTX) OrderItemRepository
	Create(ctx context.Context, item *models.OrderItem) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.OrderItem, error)
	ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.OrderItem, error)
	ListByOrders(ctx context.Context, tenantID uuid.UUID, orderIDs []uuid.UUID) ([]*models.OrderItem, error)
	UpdateQuantity(ctx context.Context, tenantID, id uuid.UUID, quantity int) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	// MarkSentToKitchen flags every unsent item of the order and returns how many changed.
	MarkSentToKitchen(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error)
	Count(ctx context.Context, tenantID, orderID uuid.UUID) (total int, sent int, err error)
}

type orderItemRepo struct {
	db DBTX
}

func NewOrderItemRepo(db DBTX) OrderItemRepository {
	return &orderItemRepo{db: db}
}

func (r *orderItemRepo) WithTx(q DBTX) OrderItemRepository {
	return &orderItemRepo{db: q}
}

const orderItemSelect = `
	SELECT i.id, i.tenant_id, i.order_id, i.product_id, p.name, i.quantity, i.price,
		i.is_sent_to_kitchen, i.sent_at, i.note, i.created_at
	FROM order_items i
	JOIN products p ON p.id = i.product_id AND p.tenant_id = i.tenant_id`

func (r *orderItemRepo) Create(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (id, tenant_id, order_id, product_id, quantity, price, is_sent_to_kitchen, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7, NOW())
		RETURNING created_at
	`
	err := r.db.QueryRow(ctx, query, item.ID, item.TenantID, item.OrderID, item.ProductID, item.Quantity, item.Price, item.Note).
		Scan(&item.CreatedAt)
	return translate(err)
}

func (r *orderItemRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.OrderItem, error) {
	item := &models.OrderItem{}
	err := r.db.QueryRow(ctx, orderItemSelect+` WHERE i.tenant_id = $1 AND i.id = $2`, tenantID, id).
		Scan(&item.ID, &item.TenantID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price,
			&item.IsSentToKitchen, &item.SentAt, &item.Note, &item.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return item, nil
}

func (r *orderItemRepo) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.OrderItem, error) {
	return r.scanMany(ctx, orderItemSelect+` WHERE i.tenant_id = $1 AND i.order_id = $2 ORDER BY i.created_at`, tenantID, orderID)
}

func (r *orderItemRepo) ListByOrders(ctx context.Context, tenantID uuid.UUID, orderIDs []uuid.UUID) ([]*models.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	return r.scanMany(ctx, orderItemSelect+` WHERE i.tenant_id = $1 AND i.order_id = ANY($2) ORDER BY i.created_at`, tenantID, orderIDs)
}

func (r *orderItemRepo) UpdateQuantity(ctx context.Context, tenantID, id uuid.UUID, quantity int) error {
	tag, err := r.db.Exec(ctx, `UPDATE order_items SET quantity = $3 WHERE tenant_id = $1 AND id = $2`, tenantID, id, quantity)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderItemRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM order_items WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderItemRepo) MarkSentToKitchen(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error) {
	query := `
		UPDATE order_items
		SET is_sent_to_kitchen = TRUE, sent_at = NOW()
		WHERE tenant_id = $1 AND order_id = $2 AND NOT is_sent_to_kitchen
	`
	tag, err := r.db.Exec(ctx, query, tenantID, orderID)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}

func (r *orderItemRepo) Count(ctx context.Context, tenantID, orderID uuid.UUID) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_sent_to_kitchen)
		FROM order_items
		WHERE tenant_id = $1 AND order_id = $2
	`
	var total, sent int
	err := r.db.QueryRow(ctx, query, tenantID, orderID).Scan(&total, &sent)
	return total, sent, translate(err)
}

func (r *orderItemRepo) scanMany(ctx context.Context, query string, args ...any) ([]*models.OrderItem, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.TenantID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.Price,
			&item.IsSentToKitchen, &item.SentAt, &item.Note, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
