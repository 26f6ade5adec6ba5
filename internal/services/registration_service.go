package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"tabletop/internal/access"
	"tabletop/internal/common"
	"tabletop/internal/identity"
	"tabletop/internal/models"
	"tabletop/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const minPasswordLength = 6

type RegisterRestaurantRequest struct {
	Code          string  `json:"restaurantCode"`
	Name          string  `json:"restaurantName"`
	IBAN          *string `json:"restaurantIban"`
	AdminEmail    string  `json:"adminEmail"`
	AdminPassword string  `json:"adminPassword"`
	AdminName     string  `json:"adminName"`
}

type RegisterWaiterRequest struct {
	Email    string `json:"waiterEmail"`
	Password string `json:"waiterPassword"`
	Name     string `json:"waiterName"`
}

type RegistrationResult struct {
	Tenant *models.Tenant      `json:"tenant,omitempty"`
	Staff  *models.StaffMember `json:"staff"`
}

type RegistrationService interface {
	// RegisterRestaurant creates a tenant, its admin's identity account and the
	// admin profile. A failing step undoes the steps before it.
	RegisterRestaurant(ctx context.Context, req *RegisterRestaurantRequest) (*RegistrationResult, error)
	// RegisterWaiter adds a waiter to the calling admin's tenant.
	RegisterWaiter(ctx context.Context, req *RegisterWaiterRequest) (*RegistrationResult, error)
}

type registrationService struct {
	tenantRepo repositories.TenantRepository
	staffRepo  repositories.StaffRepository
	provider   identity.Provider
	audit      AuditLogsService
	logger     *zap.Logger
}

func NewRegistrationService(tenantRepo repositories.TenantRepository, staffRepo repositories.StaffRepository, provider identity.Provider, audit AuditLogsService, logger *zap.Logger) RegistrationService {
	return &registrationService{
		tenantRepo: tenantRepo,
		staffRepo:  staffRepo,
		provider:   provider,
		audit:      audit,
		logger:     logger,
	}
}

func validateCredentials(emailField, email, passwordField, password, nameField, name string) (string, string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", "", invalid(emailField, "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", "", invalid(emailField, "is not a valid email address")
	}
	if len(password) < minPasswordLength {
		return "", "", invalid(passwordField, fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", invalid(nameField, "is required")
	}
	if len(name) > maxNameLength {
		return "", "", invalid(nameField, "is too long")
	}
	return strings.ToLower(email), name, nil
}

func (s *registrationService) RegisterRestaurant(ctx context.Context, req *RegisterRestaurantRequest) (*RegistrationResult, error) {
	code := common.NormalizeTenantCode(req.Code)
	if code == "" {
		return nil, invalid("restaurantCode", "is required")
	}
	if len(code) > maxTenantCodeLength {
		return nil, invalid("restaurantCode", "is too long")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("restaurantName", "is required")
	}
	if err := invalidErr("restaurantIban", common.ValidateOptionalString(req.IBAN, "restaurantIban", maxBankIDLength)); err != nil {
		return nil, err
	}
	email, adminName, err := validateCredentials("adminEmail", req.AdminEmail, "adminPassword", req.AdminPassword, "adminName", req.AdminName)
	if err != nil {
		return nil, err
	}

	exists, err := s.tenantRepo.ExistsByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("check tenant code: %w", err)
	}
	if exists {
		return nil, ErrDuplicateTenantCode
	}

	tenant := &models.Tenant{
		ID:             uuid.New(),
		Code:           code,
		Name:           name,
		BankTransferID: common.NullIfEmpty(req.IBAN),
	}
	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		if repositories.IsUniqueViolation(err, repositories.ConstraintTenantCode) {
			return nil, ErrDuplicateTenantCode
		}
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	user, err := s.provider.CreateUser(ctx, email, req.AdminPassword, map[string]any{
		"name":        adminName,
		"role":        string(models.RoleAdmin),
		"tenant_code": code,
	})
	if err != nil {
		return nil, s.compensate(ctx, err, tenant.ID, uuid.Nil)
	}

	admin := &models.StaffMember{
		ID:       user.ID,
		TenantID: tenant.ID,
		Name:     adminName,
		Email:    email,
		Role:     models.RoleAdmin,
	}
	if err := s.staffRepo.Create(ctx, admin); err != nil {
		return nil, s.compensate(ctx, fmt.Errorf("create admin profile: %w", err), tenant.ID, user.ID)
	}

	if err := s.audit.LogActivity(ctx, tenant.ID, "tenants", tenant.ID.String(), models.ActionTenantRegistered, &admin.ID, nil,
		models.JSONB{"code": tenant.Code, "name": tenant.Name, "admin_email": email}); err != nil {
		s.logger.Warn("failed to audit tenant registration", zap.Error(err))
	}

	s.logger.Info("restaurant registered", zap.String("tenant_id", tenant.ID.String()), zap.String("code", code))
	return &RegistrationResult{Tenant: tenant, Staff: admin}, nil
}

// compensate undoes the account and tenant created so far. cause is returned
// unchanged when compensation succeeds so provider messages stay intact.
func (s *registrationService) compensate(ctx context.Context, cause error, tenantID, userID uuid.UUID) error {
	var rollbackErr error
	if userID != uuid.Nil {
		if err := s.provider.DeleteUser(ctx, userID); err != nil {
			rollbackErr = multierr.Append(rollbackErr, fmt.Errorf("delete identity account: %w", err))
		}
	}
	if tenantID != uuid.Nil {
		if err := s.tenantRepo.Delete(ctx, tenantID); err != nil {
			rollbackErr = multierr.Append(rollbackErr, fmt.Errorf("delete tenant: %w", err))
		}
	}
	if rollbackErr != nil {
		s.logger.Error("registration rollback incomplete",
			zap.String("tenant_id", tenantID.String()), zap.String("user_id", userID.String()),
			zap.NamedError("cause", cause), zap.Error(rollbackErr))
		return multierr.Append(cause, rollbackErr)
	}
	return cause
}

func (s *registrationService) RegisterWaiter(ctx context.Context, req *RegisterWaiterRequest) (*RegistrationResult, error) {
	p, err := access.Authorize(ctx, access.ManageStaff)
	if err != nil {
		return nil, err
	}
	email, name, err := validateCredentials("waiterEmail", req.Email, "waiterPassword", req.Password, "waiterName", req.Name)
	if err != nil {
		return nil, err
	}

	user, err := s.provider.CreateUser(ctx, email, req.Password, map[string]any{
		"name": name,
		"role": string(models.RoleWaiter),
	})
	if err != nil {
		return nil, err
	}

	waiter := &models.StaffMember{
		ID:       user.ID,
		TenantID: p.TenantID,
		Name:     name,
		Email:    email,
		Role:     models.RoleWaiter,
	}
	if err := s.staffRepo.Create(ctx, waiter); err != nil {
		return nil, s.compensate(ctx, fmt.Errorf("create waiter profile: %w", err), uuid.Nil, user.ID)
	}

	changedBy := p.UserID
	if err := s.audit.LogActivity(ctx, p.TenantID, "staff", waiter.ID.String(), models.ActionInsert, &changedBy, nil, staffValues(waiter)); err != nil {
		s.logger.Warn("failed to audit waiter registration", zap.Error(err))
	}
	return &RegistrationResult{Staff: waiter}, nil
}
