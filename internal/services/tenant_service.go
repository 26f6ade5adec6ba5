package services

import (
	"context"
	"errors"
	"time"

	"tabletop/internal/access"
	"tabletop/internal/caching"
	"tabletop/internal/common"
	"tabletop/internal/models"
	"tabletop/internal/repositories"

	"go.uber.org/zap"
)

const (
	maxTenantCodeLength = 32
	maxNameLength       = 120
	maxBankIDLength     = 64
)

type TenantService interface {
	// ResolveCode maps a tenant code typed by a user to its tenant. Unknown codes
	// return ErrInvalidTenantCode.
	ResolveCode(ctx context.Context, code string) (*models.Tenant, error)
	GetSettings(ctx context.Context) (*models.Tenant, error)
	UpdateSettings(ctx context.Context, update *models.TenantSettingsUpdate) (*models.Tenant, error)
}

type tenantService struct {
	tenantRepo repositories.TenantRepository
	cache      caching.CacheService
	cacheTTL   time.Duration
	logger     *zap.Logger
}

func NewTenantService(tenantRepo repositories.TenantRepository, cache caching.CacheService, cacheTTL time.Duration, logger *zap.Logger) TenantService {
	return &tenantService{tenantRepo: tenantRepo, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

func validateTenantCode(code string) (string, error) {
	code = common.NormalizeTenantCode(code)
	if code == "" {
		return "", invalid("tenant_code", "is required")
	}
	if len(code) > maxTenantCodeLength {
		return "", invalid("tenant_code", "is too long")
	}
	return code, nil
}

func (s *tenantService) ResolveCode(ctx context.Context, code string) (*models.Tenant, error) {
	code, err := validateTenantCode(code)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.GetTenantByCode(ctx, code)
		if err != nil {
			s.logger.Warn("tenant cache lookup failed", zap.String("code", code), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	tenant, err := s.tenantRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidTenantCode
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetTenantByCode(ctx, tenant, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache tenant", zap.String("code", code), zap.Error(err))
		}
	}
	return tenant, nil
}

func (s *tenantService) GetSettings(ctx context.Context) (*models.Tenant, error) {
	p, err := access.Authorize(ctx, access.ManageSettings)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenantRepo.GetByID(ctx, p.TenantID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrTenantNotFound
	}
	return tenant, err
}

func (s *tenantService) UpdateSettings(ctx context.Context, update *models.TenantSettingsUpdate) (*models.Tenant, error) {
	p, err := access.Authorize(ctx, access.ManageSettings)
	if err != nil {
		return nil, err
	}

	tenant, err := s.tenantRepo.GetByID(ctx, p.TenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	if update.Name != nil {
		if err := invalidErr("name", common.ValidateRequiredString(*update.Name, "name")); err != nil {
			return nil, err
		}
		if err := invalidErr("name", common.ValidateOptionalString(update.Name, "name", maxNameLength)); err != nil {
			return nil, err
		}
		tenant.Name = *update.Name
	}
	if update.BankTransferID != nil {
		if err := invalidErr("bank_transfer_id", common.ValidateOptionalString(update.BankTransferID, "bank_transfer_id", maxBankIDLength)); err != nil {
			return nil, err
		}
		tenant.BankTransferID = common.NullIfEmpty(update.BankTransferID)
	}

	if err := s.tenantRepo.UpdateSettings(ctx, tenant); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.DeleteTenantByCode(ctx, tenant.Code); err != nil {
			s.logger.Warn("failed to evict tenant cache", zap.String("code", tenant.Code), zap.Error(err))
		}
	}
	return tenant, nil
}
