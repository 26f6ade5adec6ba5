package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tabletop/internal/access"
	"tabletop/internal/models"
	"tabletop/internal/repositories"

	"github.com/google/uuid"
)

type AuditLogsService interface {
	// LogActivity records an audit entry. tenantID is passed explicitly because
	// registration and login write entries before a session exists.
	LogActivity(ctx context.Context, tenantID uuid.UUID, tableName, recordID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error
	ListAuditLogs(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
}

type auditLogsService struct {
	auditLogsRepo repositories.AuditLogsRepository
}

func NewAuditLogsService(auditLogsRepo repositories.AuditLogsRepository) AuditLogsService {
	return &auditLogsService{
		auditLogsRepo: auditLogsRepo,
	}
}

func (s *auditLogsService) LogActivity(ctx context.Context, tenantID uuid.UUID, tableName, recordID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error {
	if tableName == "" {
		return errors.New("table_name is required")
	}
	if action == "" {
		return errors.New("action is required")
	}

	auditLog := &models.AuditLog{
		ID:        uuid.New(),
		TenantID:  tenantID,
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		NewValues: newValues,
		OldValues: oldValues,
		ChangedBy: changedBy,
	}
	if err := s.auditLogsRepo.Create(ctx, auditLog); err != nil {
		return fmt.Errorf("record audit log %s on %s: %w", action, tableName, err)
	}
	return nil
}

func (s *auditLogsService) ListAuditLogs(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	p, err := access.Authorize(ctx, access.ViewAuditLog)
	if err != nil {
		return nil, err
	}
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}
	if err := validateAuditFilters(filters); err != nil {
		return nil, err
	}
	return s.auditLogsRepo.List(ctx, p.TenantID, filters)
}

func validateAuditFilters(filters *models.AuditLogFilters) error {
	if filters.StartDate != nil && filters.EndDate != nil {
		if filters.EndDate.Before(*filters.StartDate) {
			return invalid("end_date", "cannot be before start_date")
		}
		if filters.EndDate.Sub(*filters.StartDate) > 365*24*time.Hour {
			return invalid("end_date", "date range cannot exceed 1 year")
		}
	}
	if filters.Limit > 1000 {
		return invalid("limit", "maximum limit is 1000 records")
	}
	if filters.Offset < 0 {
		return invalid("offset", "cannot be negative")
	}
	return nil
}

// staffValues is the audit snapshot of a profile.
func staffValues(s *models.StaffMember) models.JSONB {
	return models.JSONB{
		"id":        s.ID.String(),
		"tenant_id": s.TenantID.String(),
		"name":      s.Name,
		"email":     s.Email,
		"role":      string(s.Role),
	}
}

func productValues(p *models.Product) models.JSONB {
	return models.JSONB{
		"name":           p.Name,
		"price":          p.Price,
		"is_active":      p.IsActive,
		"stock_enabled":  p.StockEnabled,
		"stock_quantity": p.StockQuantity,
	}
}
