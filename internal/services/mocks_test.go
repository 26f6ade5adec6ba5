package services

import (
	"context"
	"sync"
	"time"

	"tabletop/internal/identity"
	"tabletop/internal/models"
	"tabletop/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *models.Tenant) error {
	return m.Called(ctx, tenant).Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetByCode(ctx context.Context, code string) (*models.Tenant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockTenantRepository) UpdateSettings(ctx context.Context, tenant *models.Tenant) error {
	return m.Called(ctx, tenant).Error(0)
}

func (m *MockTenantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTenantRepository) List(ctx context.Context) ([]*models.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Tenant), args.Error(1)
}

type MockStaffRepository struct {
	mock.Mock
}

func (m *MockStaffRepository) Create(ctx context.Context, staff *models.StaffMember) error {
	return m.Called(ctx, staff).Error(0)
}

func (m *MockStaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.StaffMember, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StaffMember), args.Error(1)
}

func (m *MockStaffRepository) GetByTenantAndID(ctx context.Context, tenantID, id uuid.UUID) (*models.StaffMember, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StaffMember), args.Error(1)
}

func (m *MockStaffRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, role *models.Role) ([]*models.StaffMember, error) {
	args := m.Called(ctx, tenantID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.StaffMember), args.Error(1)
}

func (m *MockStaffRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateUser(ctx context.Context, email, password string, metadata map[string]any) (*identity.User, error) {
	args := m.Called(ctx, email, password, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockProvider) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockProvider) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Session), args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

type MockCacheService struct {
	mock.Mock
}

func (m *MockCacheService) SetSession(ctx context.Context, session *models.Session, ttl time.Duration) error {
	return m.Called(ctx, session, ttl).Error(0)
}

func (m *MockCacheService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockCacheService) DeleteSession(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockCacheService) GetTenantByCode(ctx context.Context, code string) (*models.Tenant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockCacheService) SetTenantByCode(ctx context.Context, tenant *models.Tenant, ttl time.Duration) error {
	return m.Called(ctx, tenant, ttl).Error(0)
}

func (m *MockCacheService) DeleteTenantByCode(ctx context.Context, code string) error {
	return m.Called(ctx, code).Error(0)
}

func (m *MockCacheService) GetReport(ctx context.Context, tenantID uuid.UUID, rng models.ReportRange, day time.Time) (*models.SalesReport, error) {
	args := m.Called(ctx, tenantID, rng, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SalesReport), args.Error(1)
}

func (m *MockCacheService) SetReport(ctx context.Context, tenantID uuid.UUID, report *models.SalesReport, ttl time.Duration) error {
	return m.Called(ctx, tenantID, report, ttl).Error(0)
}

func (m *MockCacheService) InvalidateReports(ctx context.Context, tenantID uuid.UUID, day time.Time) error {
	return m.Called(ctx, tenantID, day).Error(0)
}

func (m *MockCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheService) ResetRateLimit(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockCacheService) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type MockAuditLogsRepository struct {
	mock.Mock
}

func (m *MockAuditLogsRepository) Create(ctx context.Context, auditLog *models.AuditLog) error {
	return m.Called(ctx, auditLog).Error(0)
}

func (m *MockAuditLogsRepository) List(ctx context.Context, tenantID uuid.UUID, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	args := m.Called(ctx, tenantID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

// recordingAudit keeps every entry written through LogActivity.
type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (a *recordingAudit) LogActivity(ctx context.Context, tenantID uuid.UUID, tableName, recordID, action string, changedBy *uuid.UUID, oldValues, newValues models.JSONB) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, &models.AuditLog{
		TenantID:  tenantID,
		TableName: tableName,
		RecordID:  recordID,
		Action:    action,
		ChangedBy: changedBy,
		OldValues: oldValues,
		NewValues: newValues,
	})
	return nil
}

func (a *recordingAudit) ListAuditLogs(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	return nil, nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) entities() []realtime.Entity {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.Entity, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Entity)
	}
	return out
}
