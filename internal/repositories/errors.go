package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a row does not exist or is not visible to the tenant.
var ErrNotFound = errors.New("record not found")

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// Constraint names referenced by services.
const (
	ConstraintTenantCode        = "tenants_code_key"
	ConstraintTableNumber       = "tables_tenant_number_key"
	ConstraintActiveOrder       = "orders_one_active_per_table"
	ConstraintOrdersTable       = "orders_table_fk"
	ConstraintOrderItemsProduct = "order_items_product_fk"
)

// ConstraintError reports an integrity violation signalled by PostgreSQL.
type ConstraintError struct {
	Code       string
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint %s violated (%s)", e.Constraint, e.Code)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// translate maps driver errors onto repository errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgForeignKeyViolation, pgCheckViolation:
			return &ConstraintError{Code: pgErr.Code, Constraint: pgErr.ConstraintName, Err: err}
		}
	}
	return err
}

// IsUniqueViolation reports whether err is a unique violation on the named constraint.
// An empty constraint matches any unique violation.
func IsUniqueViolation(err error, constraint string) bool {
	return isViolation(err, pgUniqueViolation, constraint)
}

// IsForeignKeyViolation reports whether err is a foreign key violation on the named constraint.
func IsForeignKeyViolation(err error, constraint string) bool {
	return isViolation(err, pgForeignKeyViolation, constraint)
}

func isViolation(err error, code, constraint string) bool {
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == code && (constraint == "" || ce.Constraint == constraint)
}
