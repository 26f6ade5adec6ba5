package repositories

import (
	"context"

	"tabletop/internal/models"

	"github.com/google/uuid"
)

type StaffRepository interface {
	Create(ctx context.Context, staff *models.StaffMember) error
	// GetByID looks a profile up by principal id without a tenant filter. It is
	// used at login, before the session's tenant is known to be valid.
	GetByID(ctx context.Context, id uuid.UUID) (*models.StaffMember, error)
	GetByTenantAndID(ctx context.Context, tenantID, id uuid.UUID) (*models.StaffMember, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, role *models.Role) ([]*models.StaffMember, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type staffRepo struct {
	db DBTX
}

func NewStaffRepo(db DBTX) StaffRepository {
	return &staffRepo{db: db}
}

const staffColumns = `id, tenant_id, name, email, role, created_at, updated_at`

func (r *staffRepo) Create(ctx context.Context, staff *models.StaffMember) error {
	query := `
		INSERT INTO staff (id, tenant_id, name, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, staff.ID, staff.TenantID, staff.Name, staff.Email, staff.Role).
		Scan(&staff.CreatedAt, &staff.UpdatedAt)
	return translate(err)
}

func (r *staffRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StaffMember, error) {
	return r.scanOne(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id)
}

func (r *staffRepo) GetByTenantAndID(ctx context.Context, tenantID, id uuid.UUID) (*models.StaffMember, error) {
	return r.scanOne(ctx, `SELECT `+staffColumns+` FROM staff WHERE tenant_id = $1 AND id = $2`, tenantID, id)
}

func (r *staffRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, role *models.Role) ([]*models.StaffMember, error) {
	q := psql.Select(staffColumns).From("staff").Where("tenant_id = ?", tenantID).OrderBy("name")
	if role != nil {
		q = q.Where("role = ?", *role)
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

	var staff []*models.StaffMember
	for rows.Next() {
		member := &models.StaffMember{}
		if err := rows.Scan(&member.ID, &member.TenantID, &member.Name, &member.Email, &member.Role, &member.CreatedAt, &member.UpdatedAt); err != nil {
			return nil, err
		}
		staff = append(staff, member)
	}
	return staff, rows.Err()
}

func (r *staffRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM staff WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *staffRepo) scanOne(ctx context.Context, query string, args ...any) (*models.StaffMember, error) {
	member := &models.StaffMember{}
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&member.ID, &member.TenantID, &member.Name, &member.Email, &member.Role, &member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return member, nil
}
