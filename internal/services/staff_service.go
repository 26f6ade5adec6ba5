package services

import (
	"context"
	"errors"

	"tabletop/internal/access"
	"tabletop/internal/identity"
	"tabletop/internal/models"
	"tabletop/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StaffService interface {
	// Profile loads a profile by principal id regardless of tenant. The route
	// guard compares its tenant and role against the session.
	Profile(ctx context.Context, id uuid.UUID) (*models.StaffMember, error)
	Me(ctx context.Context) (*models.StaffMember, error)
	ListStaff(ctx context.Context) ([]*models.StaffMember, error)
	ListWaiters(ctx context.Context) ([]*models.StaffMember, error)
	RemoveWaiter(ctx context.Context, id uuid.UUID) error
}

type staffService struct {
	staffRepo repositories.StaffRepository
	provider  identity.Provider
	audit     AuditLogsService
	logger    *zap.Logger
}

func NewStaffService(staffRepo repositories.StaffRepository, provider identity.Provider, audit AuditLogsService, logger *zap.Logger) StaffService {
	return &staffService{staffRepo: staffRepo, provider: provider, audit: audit, logger: logger}
}

func (s *staffService) Profile(ctx context.Context, id uuid.UUID) (*models.StaffMember, error) {
	staff, err := s.staffRepo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrStaffNotFound
	}
	return staff, err
}

func (s *staffService) Me(ctx context.Context) (*models.StaffMember, error) {
	p, err := access.Authorize(ctx, access.ViewOwnProfile)
	if err != nil {
		return nil, err
	}
	staff, err := s.staffRepo.GetByTenantAndID(ctx, p.TenantID, p.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrStaffNotFound
	}
	return staff, err
}

func (s *staffService) ListStaff(ctx context.Context) ([]*models.StaffMember, error) {
	p, err := access.Authorize(ctx, access.ManageStaff)
	if err != nil {
		return nil, err
	}
	return s.staffRepo.ListByTenant(ctx, p.TenantID, nil)
}

func (s *staffService) ListWaiters(ctx context.Context) ([]*models.StaffMember, error) {
	p, err := access.Authorize(ctx, access.ManageStaff)
	if err != nil {
		return nil, err
	}
	role := models.RoleWaiter
	return s.staffRepo.ListByTenant(ctx, p.TenantID, &role)
}

// RemoveWaiter deletes the profile first, which revokes access immediately,
// then the identity account. A failed account deletion is logged only.
func (s *staffService) RemoveWaiter(ctx context.Context, id uuid.UUID) error {
	p, err := access.Authorize(ctx, access.ManageStaff)
	if err != nil {
		return err
	}
	if id == p.UserID {
		return ErrCannotRemoveSelf
	}

	waiter, err := s.staffRepo.GetByTenantAndID(ctx, p.TenantID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrStaffNotFound
		}
		return err
	}
	if waiter.Role != models.RoleWaiter {
		return ErrNotWaiter
	}

	if err := s.staffRepo.Delete(ctx, p.TenantID, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrStaffNotFound
		}
		return err
	}

	if err := s.provider.DeleteUser(ctx, id); err != nil {
		s.logger.Warn("failed to delete identity account of removed waiter",
			zap.String("tenant_id", p.TenantID.String()), zap.String("staff_id", id.String()), zap.Error(err))
	}

	changedBy := p.UserID
	if err := s.audit.LogActivity(ctx, p.TenantID, "staff", id.String(), models.ActionDelete, &changedBy, staffValues(waiter), nil); err != nil {
		s.logger.Warn("failed to audit waiter removal", zap.Error(err))
	}
	return nil
}
