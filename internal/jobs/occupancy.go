package jobs

import (
	"context"

	"tabletop/internal/repositories"

	"go.uber.org/zap"
)

// OccupancyReconciler re-derives cached table statuses from the order set.
// Order mutations keep the cache current; this catches anything that slipped.
type OccupancyReconciler struct {
	tableRepo repositories.TableRepository
	logger    *zap.Logger
}

func NewOccupancyReconciler(tableRepo repositories.TableRepository, logger *zap.Logger) *OccupancyReconciler {
	return &OccupancyReconciler{tableRepo: tableRepo, logger: logger}
}

func (r *OccupancyReconciler) Run(ctx context.Context) error {
	fixed, err := r.tableRepo.ReconcileStatuses(ctx)
	if err != nil {
		return err
	}
	if fixed > 0 {
		r.logger.Warn("reconciled stale table statuses", zap.Int64("tables", fixed))
	}
	return nil
}
