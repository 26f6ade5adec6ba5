package repositories

import (
	"context"

	"tabletop/internal/models"

	"github.com/google/uuid"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetByCode(ctx context.Context, code string) (*models.Tenant, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	UpdateSettings(ctx context.Context, tenant *models.Tenant) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*models.Tenant, error)
}

type tenantRepo struct {
	db DBTX
}

func NewTenantRepo(db DBTX) TenantRepository {
	return &tenantRepo{db: db}
}

const tenantColumns = `id, code, name, bank_transfer_id, created_at, updated_at`

func (r *tenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, code, name, bank_transfer_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, tenant.ID, tenant.Code, tenant.Name, tenant.BankTransferID).
		Scan(&tenant.CreatedAt, &tenant.UpdatedAt)
	return translate(err)
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanOne(ctx, query, id)
}

func (r *tenantRepo) GetByCode(ctx context.Context, code string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE code = $1`
	return r.scanOne(ctx, query, code)
}

func (r *tenantRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tenants WHERE code = $1)`, code).Scan(&exists)
	return exists, translate(err)
}

func (r *tenantRepo) UpdateSettings(ctx context.Context, tenant *models.Tenant) error {
	query := `
		UPDATE tenants
		SET name = $1, bank_transfer_id = $2, updated_at = NOW()
		WHERE id = $3
	`
	tag, err := r.db.Exec(ctx, query, tenant.Name, tenant.BankTransferID, tenant.ID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tenantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	return translate(err)
}

func (r *tenantRepo) List(ctx context.Context) ([]*models.Tenant, error) {
	rows, err := r.db.Query(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY code`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant := &models.Tenant{}
		if err := rows.Scan(&tenant.ID, &tenant.Code, &tenant.Name, &tenant.BankTransferID, &tenant.CreatedAt, &tenant.UpdatedAt); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

func (r *tenantRepo) scanOne(ctx context.Context, query string, arg any) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	err := r.db.QueryRow(ctx, query, arg).
		Scan(&tenant.ID, &tenant.Code, &tenant.Name, &tenant.BankTransferID, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return tenant, nil
}
