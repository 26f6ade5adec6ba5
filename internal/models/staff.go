package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleWaiter Role = "waiter"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleWaiter
}

// LandingPath is the area a staff member is sent to after login.
func (r Role) LandingPath() string {
	if r == RoleAdmin {
		return "/admin"
	}
	return "/waiter"
}

// StaffMember is the profile of an identity-provider principal. ID equals the
// provider's user id. TenantID is mandatory and fixed for the lifetime of the record.
type StaffMember struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
