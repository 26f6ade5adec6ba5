package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"tabletop/internal/models"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

type AuditLogsRepository interface {
	Create(ctx context.Context, auditLog *models.AuditLog) error
	List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
}

type auditLogsRepo struct {
	db DBTX
}

func NewAuditLogsRepo(db DBTX) AuditLogsRepository {
	return &auditLogsRepo{db: db}
}

func (r *auditLogsRepo) Create(ctx context.Context, auditLog *models.AuditLog) error {
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}

	newValues, err := marshalJSONB(auditLog.NewValues)
	if err != nil {
		return fmt.Errorf("failed to marshal new_values: %w", err)
	}
	oldValues, err := marshalJSONB(auditLog.OldValues)
	if err != nil {
		return fmt.Errorf("failed to marshal old_values: %w", err)
	}

	query := `
		INSERT INTO audit_logs (id, tenant_id, table_name, record_id, action, new_values, old_values, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`
	err = r.db.QueryRow(ctx, query, auditLog.ID, auditLog.TenantID, auditLog.TableName, auditLog.RecordID,
		auditLog.Action, newValues, oldValues, auditLog.ChangedBy).Scan(&auditLog.CreatedAt)
	return translate(err)
}

func (r *auditLogsRepo) List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}
	limit := filters.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}

	q := psql.Select("id", "tenant_id", "table_name", "record_id", "action", "new_values", "old_values", "changed_by", "created_at").
		From("audit_logs").
		Where(sq.Eq{"tenant_id": tenantID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(max(filters.Offset, 0)))

	if filters.TableName != nil {
		q = q.Where(sq.Eq{"table_name": *filters.TableName})
	}
	if filters.RecordID != nil {
		q = q.Where(sq.Eq{"record_id": *filters.RecordID})
	}
	if filters.Action != nil {
		q = q.Where(sq.Eq{"action": *filters.Action})
	}
	if filters.ChangedBy != nil {
		q = q.Where(sq.Eq{"changed_by": *filters.ChangedBy})
	}
	if filters.StartDate != nil {
		q = q.Where(sq.GtOrEq{"created_at": *filters.StartDate})
	}
	if filters.EndDate != nil {
		q = q.Where(sq.LtOrEq{"created_at": *filters.EndDate})
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

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		var newValues, oldValues []byte
		if err := rows.Scan(&log.ID, &log.TenantID, &log.TableName, &log.RecordID, &log.Action, &newValues, &oldValues, &log.ChangedBy, &log.CreatedAt); err != nil {
			return nil, err
		}
		if len(newValues) > 0 {
			if err := json.Unmarshal(newValues, &log.NewValues); err != nil {
				return nil, fmt.Errorf("failed to unmarshal new_values: %w", err)
			}
		}
		if len(oldValues) > 0 {
			if err := json.Unmarshal(oldValues, &log.OldValues); err != nil {
				return nil, fmt.Errorf("failed to unmarshal old_values: %w", err)
			}
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

func marshalJSONB(v models.JSONB) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
