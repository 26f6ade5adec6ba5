package jobs

import (
	"context"
	"fmt"
	"time"

	"tabletop/internal/repositories"
	"tabletop/internal/services"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ReportArchiver stores the previous day's paid orders of every tenant.
type ReportArchiver struct {
	tenantRepo repositories.TenantRepository
	archive    services.ReportArchiveService
	logger     *zap.Logger
	now        func() time.Time
}

func NewReportArchiver(tenantRepo repositories.TenantRepository, archive services.ReportArchiveService, logger *zap.Logger) *ReportArchiver {
	return &ReportArchiver{tenantRepo: tenantRepo, archive: archive, logger: logger, now: time.Now}
}

// Run archives yesterday for all tenants. One tenant failing does not stop
// the others; the failures are returned together.
func (a *ReportArchiver) Run(ctx context.Context) error {
	tenants, err := a.tenantRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	day := a.now().AddDate(0, 0, -1)
	var errs error
	for _, tenant := range tenants {
		count, err := a.archive.ArchiveDay(ctx, tenant.ID, day)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("tenant %s: %w", tenant.ID, err))
			continue
		}
		a.logger.Info("archived daily report",
			zap.String("tenant_id", tenant.ID.String()),
			zap.String("day", day.Format("2006-01-02")),
			zap.Int("orders", count))
	}
	return errs
}
