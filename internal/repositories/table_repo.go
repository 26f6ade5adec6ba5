package repositories

import (
	"context"

	"tabletop/internal/models"

	"github.com/google/uuid"
)

type TableRepository interface {
	WithTx(q DBTX) TableRepository
	Create(ctx context.Context, table *models.Table) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Table, error)
	GetView(ctx context.Context, tenantID, id uuid.UUID) (*models.TableView, error)
	ListViews(ctx context.Context, tenantID uuid.UUID) ([]*models.TableView, error)
	// Delete removes the table unless it holds a non-paid order, which is
	// reported as ErrNotFound. Paid history surfaces as a foreign key violation
	// on ConstraintOrdersTable.
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	// RefreshStatus re-derives the cached status column from the table's orders.
	RefreshStatus(ctx context.Context, tenantID, id uuid.UUID) (models.TableStatus, error)
	// ReconcileStatuses fixes every cached status that disagrees with the order set.
	ReconcileStatuses(ctx context.Context) (int64, error)
}

type tableRepo struct {
	db DBTX
}

func NewTableRepo(db DBTX) TableRepository {
	return &tableRepo{db: db}
}

func (r *tableRepo) WithTx(q DBTX) TableRepository {
	return &tableRepo{db: q}
}

const tableViewQuery = `
	SELECT t.id, t.tenant_id, t.table_number, t.status, t.created_at, t.updated_at, o.id
	FROM tables t
	LEFT JOIN orders o ON o.table_id = t.id AND o.tenant_id = t.tenant_id AND o.status <> 'paid'
	WHERE t.tenant_id = $1`

func (r *tableRepo) Create(ctx context.Context, table *models.Table) error {
	query := `
		INSERT INTO tables (id, tenant_id, table_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, table.ID, table.TenantID, table.TableNumber, table.Status).
		Scan(&table.CreatedAt, &table.UpdatedAt)
	return translate(err)
}

func (r *tableRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Table, error) {
	query := `
		SELECT id, tenant_id, table_number, status, created_at, updated_at
		FROM tables
		WHERE tenant_id = $1 AND id = $2
	`
	table := &models.Table{}
	err := r.db.QueryRow(ctx, query, tenantID, id).
		Scan(&table.ID, &table.TenantID, &table.TableNumber, &table.Status, &table.CreatedAt, &table.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return table, nil
}

func (r *tableRepo) GetView(ctx context.Context, tenantID, id uuid.UUID) (*models.TableView, error) {
	view := &models.TableView{}
	err := r.db.QueryRow(ctx, tableViewQuery+` AND t.id = $2`, tenantID, id).
		Scan(&view.ID, &view.TenantID, &view.TableNumber, &view.Status, &view.CreatedAt, &view.UpdatedAt, &view.ActiveOrderID)
	if err != nil {
		return nil, translate(err)
	}
	view.Occupied = view.ActiveOrderID != nil
	return view, nil
}

func (r *tableRepo) ListViews(ctx context.Context, tenantID uuid.UUID) ([]*models.TableView, error) {
	rows, err := r.db.Query(ctx, tableViewQuery+` ORDER BY t.table_number`, tenantID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var views []*models.TableView
	for rows.Next() {
		view := &models.TableView{}
		if err := rows.Scan(&view.ID, &view.TenantID, &view.TableNumber, &view.Status, &view.CreatedAt, &view.UpdatedAt, &view.ActiveOrderID); err != nil {
			return nil, err
		}
		view.Occupied = view.ActiveOrderID != nil
		views = append(views, view)
	}
	return views, rows.Err()
}

func (r *tableRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	query := `
		DELETE FROM tables t
		WHERE t.tenant_id = $1 AND t.id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM orders o
			WHERE o.table_id = t.id AND o.tenant_id = t.tenant_id AND o.status <> 'paid'
		  )
	`
	tag, err := r.db.Exec(ctx, query, tenantID, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tableRepo) RefreshStatus(ctx context.Context, tenantID, id uuid.UUID) (models.TableStatus, error) {
	query := `
		UPDATE tables t
		SET status = CASE WHEN EXISTS (
				SELECT 1 FROM orders o
				WHERE o.table_id = t.id AND o.tenant_id = t.tenant_id AND o.status <> 'paid'
			) THEN 'occupied' ELSE 'empty' END,
			updated_at = NOW()
		WHERE t.tenant_id = $1 AND t.id = $2
		RETURNING t.status
	`
	var status models.TableStatus
	if err := r.db.QueryRow(ctx, query, tenantID, id).Scan(&status); err != nil {
		return "", translate(err)
	}
	return status, nil
}

func (r *tableRepo) ReconcileStatuses(ctx context.Context) (int64, error) {
	query := `
		UPDATE tables t
		SET status = d.derived, updated_at = NOW()
		FROM (
			SELECT t2.id,
				CASE WHEN EXISTS (
					SELECT 1 FROM orders o
					WHERE o.table_id = t2.id AND o.tenant_id = t2.tenant_id AND o.status <> 'paid'
				) THEN 'occupied' ELSE 'empty' END AS derived
			FROM tables t2
		) d
		WHERE t.id = d.id AND t.status <> d.derived
	`
	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, translate(err)
	}
	return tag.RowsAffected(), nil
}
