package jobs

import (
	"context"

	"tabletop/internal/models"
	"tabletop/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StockAlert struct {
	TenantID     uuid.UUID
	ProductID    uuid.UUID
	ProductName  string
	CurrentStock int
	Threshold    int
}

// StockAlertService reports tracked products that are running out.
type StockAlertService struct {
	productRepo repositories.ProductRepository
	threshold   int
	logger      *zap.Logger
}

func NewStockAlertService(productRepo repositories.ProductRepository, threshold int, logger *zap.Logger) *StockAlertService {
	if threshold <= 0 {
		threshold = models.LowStockThreshold
	}
	return &StockAlertService{productRepo: productRepo, threshold: threshold, logger: logger}
}

// CheckLowStock lists low stock products of every tenant.
func (a *StockAlertService) CheckLowStock(ctx context.Context) ([]StockAlert, error) {
	products, err := a.productRepo.ListLowStock(ctx, a.threshold)
	if err != nil {
		return nil, err
	}

	alerts := make([]StockAlert, 0, len(products))
	for _, p := range products {
		alerts = append(alerts, StockAlert{
			TenantID:     p.TenantID,
			ProductID:    p.ID,
			ProductName:  p.Name,
			CurrentStock: p.StockQuantity,
			Threshold:    a.threshold,
		})
	}
	return alerts, nil
}

func (a *StockAlertService) LogLowStockAlerts(alerts []StockAlert) {
	for _, alert := range alerts {
		a.logger.Warn("low stock",
			zap.String("tenant_id", alert.TenantID.String()),
			zap.String("product_id", alert.ProductID.String()),
			zap.String("product", alert.ProductName),
			zap.Int("stock", alert.CurrentStock),
			zap.Int("threshold", alert.Threshold))
	}
}

// Run is the scheduled entry point.
func (a *StockAlertService) Run(ctx context.Context) error {
	alerts, err := a.CheckLowStock(ctx)
	if err != nil {
		return err
	}
	a.LogLowStockAlerts(alerts)
	a.logger.Debug("low stock check done", zap.Int("alerts", len(alerts)))
	return nil
}
