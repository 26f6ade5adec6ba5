package access

import (
	"context"
	"errors"

	"tabletop/internal/common"
	"tabletop/internal/models"
)

var (
	// ErrUnauthenticated means the context carries no principal.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden means the principal's role may not perform the operation.
	ErrForbidden = errors.New("insufficient permissions")
)

type Operation string

const (
	ManageSettings Operation = "manage_settings"
	ManageStaff    Operation = "manage_staff"
	ManageTables   Operation = "manage_tables"
	ManageCatalog  Operation = "manage_catalog"
	SettleOrders   Operation = "settle_orders"
	ReviewOrders   Operation = "review_orders"
	ViewReports    Operation = "view_reports"
	ViewAuditLog   Operation = "view_audit_log"
	ViewTables     Operation = "view_tables"
	ViewMenu       Operation = "view_menu"
	TakeOrders     Operation = "take_orders"
	ViewOrders     Operation = "view_orders"
	ViewOwnProfile Operation = "view_own_profile"
)

var rules = map[Operation][]models.Role{
	ManageSettings: {models.RoleAdmin},
	ManageStaff:    {models.RoleAdmin},
	ManageTables:   {models.RoleAdmin},
	ManageCatalog:  {models.RoleAdmin},
	SettleOrders:   {models.RoleAdmin},
	ReviewOrders:   {models.RoleAdmin},
	ViewReports:    {models.RoleAdmin},
	ViewAuditLog:   {models.RoleAdmin},
	ViewTables:     {models.RoleAdmin, models.RoleWaiter},
	ViewMenu:       {models.RoleAdmin, models.RoleWaiter},
	TakeOrders:     {models.RoleAdmin, models.RoleWaiter},
	ViewOrders:     {models.RoleAdmin, models.RoleWaiter},
	ViewOwnProfile: {models.RoleAdmin, models.RoleWaiter},
}

// Authorize returns the caller when its role may perform op. Every tenant
// scoped query is then keyed on the returned principal's TenantID.
func Authorize(ctx context.Context, op Operation) (common.Principal, error) {
	p, ok := common.PrincipalFromContext(ctx)
	if !ok {
		return common.Principal{}, ErrUnauthenticated
	}
	if !Allowed(p.Role, op) {
		return common.Principal{}, ErrForbidden
	}
	return p, nil
}

// Allowed reports whether role may perform op.
func Allowed(role models.Role, op Operation) bool {
	for _, r := range rules[op] {
		if r == role {
			return true
		}
	}
	return false
}
