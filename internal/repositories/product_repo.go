package repositories

import (
	"context"

	"tabletop/internal/models"

	"github.com/google/uuid"
)

type ProductRepository interface {
	WithTx(q DBTX) ProductRepository
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error)
	// GetForUpdate locks the product row for the rest of the transaction.
	GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]*models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	// ListLowStock returns tracked products below threshold across all tenants.
	ListLowStock(ctx context.Context, threshold int) ([]*models.Product, error)
}

type productRepo struct {
	db DBTX
}

func NewProductRepo(db DBTX) ProductRepository {
	return &productRepo{db: db}
}

func (r *productRepo) WithTx(q DBTX) ProductRepository {
	return &productRepo{db: q}
}

const productColumns = `id, tenant_id, name, price, is_active, stock_enabled, stock_quantity, created_at, updated_at`

func (r *productRepo) Create(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (id, tenant_id, name, price, is_active, stock_enabled, stock_quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, product.ID, product.TenantID, product.Name, product.Price,
		product.IsActive, product.StockEnabled, product.StockQuantity).
		Scan(&product.CreatedAt, &product.UpdatedAt)
	return translate(err)
}

func (r *productRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 AND id = $2`
	return r.scanOne(ctx, query, tenantID, id)
}

func (r *productRepo) GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 AND id = $2 FOR UPDATE`
	return r.scanOne(ctx, query, tenantID, id)
}

func (r *productRepo) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]*models.Product, error) {
	q := psql.Select(productColumns).From("products").Where("tenant_id = ?", tenantID).OrderBy("name")
	if activeOnly {
		q = q.Where("is_active")
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	return r.scanMany(ctx, query, args...)
}

func (r *productRepo) Update(ctx context.Context, product *models.Product) error {
	query := `
		UPDATE products
		SET name = $1, price = $2, is_active = $3, stock_enabled = $4, stock_quantity = $5, updated_at = NOW()
		WHERE tenant_id = $6 AND id = $7
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, product.Name, product.Price, product.IsActive, product.StockEnabled,
		product.StockQuantity, product.TenantID, product.ID).Scan(&product.UpdatedAt)
	return translate(err)
}

func (r *productRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepo) ListLowStock(ctx context.Context, threshold int) ([]*models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE stock_enabled AND stock_quantity < $1
		ORDER BY tenant_id, stock_quantity, name
	`
	return r.scanMany(ctx, query, threshold)
}

func (r *productRepo) scanOne(ctx context.Context, query string, args ...any) (*models.Product, error) {
	p := &models.Product{}
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&p.ID, &p.TenantID, &p.Name, &p.Price, &p.IsActive, &p.StockEnabled, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (r *productRepo) scanMany(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Price, &p.IsActive, &p.StockEnabled, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
