package services

import (
	"context"
	"errors"
	"strings"

	"tabletop/internal/access"
	"tabletop/internal/common"
	"tabletop/internal/models"
	"tabletop/internal/realtime"
	"tabletop/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxProductNameLength = 120
	maxPrice             = 99999999.99
	maxStockQuantity     = 1000000
)

type ProductService interface {
	Create(ctx context.Context, input *models.ProductInput) (*models.Product, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	// List returns the whole catalog for admins.
	List(ctx context.Context) ([]*models.Product, error)
	// Menu returns the active products offered to waiters.
	Menu(ctx context.Context) ([]*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input *models.ProductInput) (*models.Product, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, update *models.StockUpdate) (*models.Product, error)
	ListStock(ctx context.Context) ([]*models.ProductWithStock, error)
	LowStock(ctx context.Context) ([]*models.ProductWithStock, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type productService struct {
	tx          repositories.Transactor
	productRepo repositories.ProductRepository
	audit       AuditLogsService
	notifier
}

func NewProductService(tx repositories.Transactor, productRepo repositories.ProductRepository, audit AuditLogsService, publisher realtime.Publisher, logger *zap.Logger) ProductService {
	return &productService{
		tx:          tx,
		productRepo: productRepo,
		audit:       audit,
		notifier:    notifier{publisher: publisher, logger: logger},
	}
}

func validateProductInput(input *models.ProductInput) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return invalid("name", "is required")
	}
	if len(input.Name) > maxProductNameLength {
		return invalid("name", "is too long")
	}
	return invalidErr("price", common.ValidatePrice(input.Price, "price", maxPrice))
}

func (s *productService) Create(ctx context.Context, input *models.ProductInput) (*models.Product, error) {
	p, err := access.Authorize(ctx, access.ManageCatalog)
	if err != nil {
		return nil, err
	}
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:            uuid.New(),
		TenantID:      p.TenantID,
		Name:          input.Name,
		Price:         input.Price,
		IsActive:      true,
		StockEnabled:  false,
		StockQuantity: 0,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	ApplyStockPolicy(product)

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.notify(ctx, p.TenantID, realtime.EntityProduct, product.ID, realtime.ActionCreated)
	return product, nil
}

func (s *productService) get(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	product, err := s.productRepo.GetByID(ctx, tenantID, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return product, err
}

func (s *productService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := access.Authorize(ctx, access.ViewMenu)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, p.TenantID, id)
}

func (s *productService) List(ctx context.Context) ([]*models.Product, error) {
	p, err := access.Authorize(ctx, access.ManageCatalog)
	if err != nil {
		return nil, err
	}
	return s.productRepo.List(ctx, p.TenantID, false)
}

func (s *productService) Menu(ctx context.Context) ([]*models.Product, error) {
	p, err := access.Authorize(ctx, access.ViewMenu)
	if err != nil {
		return nil, err
	}
	return s.productRepo.List(ctx, p.TenantID, true)
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, input *models.ProductInput) (*models.Product, error) {
	p, err := access.Authorize(ctx, access.ManageCatalog)
	if err != nil {
		return nil, err
	}
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	var before models.JSONB
	product, err := s.modify(ctx, p.TenantID, id, func(product *models.Product) error {
		before = productValues(product)
		product.Name = input.Name
		product.Price = input.Price
		if input.IsActive != nil && *input.IsActive != product.IsActive {
			if product.StockEnabled {
				return ErrActiveDerivedFromStock
			}
			product.IsActive = *input.IsActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if before["price"] != product.Price {
		changedBy := p.UserID
		if err := s.audit.LogActivity(ctx, p.TenantID, "products", product.ID.String(), models.ActionUpdate, &changedBy, before, productValues(product)); err != nil {
			s.logger.Warn("failed to audit price change", zap.Error(err))
		}
	}
	return product, nil
}

func (s *productService) ToggleActive(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := access.Authorize(ctx, access.ManageCatalog)
	if err != nil {
		return nil, err
	}
	return s.modify(ctx, p.TenantID, id, func(product *models.Product) error {
		if product.StockEnabled {
			return ErrActiveDerivedFromStock
		}
		product.IsActive = !product.IsActive
		return nil
	})
}

func (s *productService) UpdateStock(ctx context.Context, id uuid.UUID, update *models.StockUpdate) (*models.Product, error) {
	p, err := access.Authorize(ctx, access.ManageCatalog)
	if err != nil {
		return nil, err
	}
	if update.StockQuantity != nil {
		if err := invalidErr("stock_quantity", common.ValidateNonNegativeInteger(*update.StockQuantity, "stock_quantity", maxStockQuantity)); err != nil {
			return nil, err
		}
	}

	return s.modify(ctx, p.TenantID, id, func(product *models.Product) error {
		if update.StockEnabled != nil {
			product.StockEnabled = *update.StockEnabled
		}
		if update.StockQuantity != nil {
			product.StockQuantity = *update.StockQuantity
		}
		return nil
	})
}

// modify applies change to the locked product row and writes it back in the
// same transaction, so stock taken by orders in the meantime is never
// overwritten with a stale quantity.
func (s *productService) modify(ctx context.Context, tenantID, id uuid.UUID, change func(*models.Product) error) (*models.Product, error) {
	var product *models.Product
	err := s.tx.WithinTx(ctx, func(q repositories.DBTX) error {
		repo := s.productRepo.WithTx(q)
		locked, err := repo.GetForUpdate(ctx, tenantID, id)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		if err := change(locked); err != nil {
			return err
		}
		ApplyStockPolicy(locked)
		if err := repo.Update(ctx, locked); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		product = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, tenantID, realtime.EntityProduct, product.ID, realtime.ActionUpdated)
	return product, nil
}

func (s *productService) ListStock(ctx context.Context) ([]*models.ProductWithStock, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return WithStockStatus(products), nil
}

func (s *productService) LowStock(ctx context.Context) ([]*models.ProductWithStock, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]*models.Product, 0)
	for _, product := range products {
		if status := product.StockStatus(); status == models.StockLow || status == models.StockOut {
			low = append(low, product)
		}
	}
	return WithStockStatus(low), nil
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := access.Authorize(ctx, access.ManageCatalog)
	if err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, p.TenantID, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return ErrProductNotFound
		case repositories.IsForeignKeyViolation(err, repositories.ConstraintOrderItemsProduct):
			return ErrProductInUse
		}
		return err
	}
	s.notify(ctx, p.TenantID, realtime.EntityProduct, id, realtime.ActionDeleted)
	return nil
}
