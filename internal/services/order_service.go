package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tabletop/internal/access"
	"tabletop/internal/caching"
	"tabletop/internal/common"
	"tabletop/internal/models"
	"tabletop/internal/realtime"
	"tabletop/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxItemQuantity = 1000
	maxNoteLength   = 200
)

type OrderConfig struct {
	// AllowItemsAfterSent lets waiters keep adding to an order already sent to the kitchen.
	AllowItemsAfterSent bool
}

// OrderMetrics receives order lifecycle counts.
type OrderMetrics interface {
	OrderOpened()
	OrderPaid(method string)
}

type OrderService interface {
	// GetActiveOrder returns the table's non-paid order. It never creates one.
	GetActiveOrder(ctx context.Context, tableID uuid.UUID) (*models.OrderDetail, error)
	// AddItem adds a line to the table's active order, opening one when the
	// table has none.
	AddItem(ctx context.Context, tableID uuid.UUID, input *models.AddItemInput) (*models.OrderDetail, error)
	AddItemToOrder(ctx context.Context, orderID uuid.UUID, input *models.AddItemInput) (*models.OrderDetail, error)
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*models.OrderDetail, error)
	// RemoveItem deletes an unsent line. It returns a nil detail when the order
	// was left empty and has been discarded.
	RemoveItem(ctx context.Context, itemID uuid.UUID) (*models.OrderDetail, error)
	SendToKitchen(ctx context.Context, orderID uuid.UUID) (*models.OrderDetail, error)
	Pay(ctx context.Context, orderID uuid.UUID, method models.PaymentMethod) (*models.OrderDetail, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderDetail, error)
	ListOrders(ctx context.Context, filter *models.OrderFilter) ([]*models.OrderSummary, error)
	DailyTotal(ctx context.Context) (*models.DailyTotal, error)
}

type orderService struct {
	tx          repositories.Transactor
	orderRepo   repositories.OrderRepository
	itemRepo    repositories.OrderItemRepository
	productRepo repositories.ProductRepository
	tableRepo   repositories.TableRepository
	cache       caching.CacheService
	audit       AuditLogsService
	metrics     OrderMetrics
	cfg         OrderConfig
	now         func() time.Time
	notifier
}

type noopOrderMetrics struct{}

func (noopOrderMetrics) OrderOpened()     {}
func (noopOrderMetrics) OrderPaid(string) {}

func NewOrderService(
	tx repositories.Transactor,
	orderRepo repositories.OrderRepository,
	itemRepo repositories.OrderItemRepository,
	productRepo repositories.ProductRepository,
	tableRepo repositories.TableRepository,
	cache caching.CacheService,
	audit AuditLogsService,
	publisher realtime.Publisher,
	metrics OrderMetrics,
	cfg OrderConfig,
	logger *zap.Logger,
) OrderService {
	if metrics == nil {
		metrics = noopOrderMetrics{}
	}
	return &orderService{
		tx:          tx,
		orderRepo:   orderRepo,
		itemRepo:    itemRepo,
		productRepo: productRepo,
		tableRepo:   tableRepo,
		cache:       cache,
		audit:       audit,
		metrics:     metrics,
		cfg:         cfg,
		now:         time.Now,
		notifier:    notifier{publisher: publisher, logger: logger},
	}
}

// txRepos is the set of repositories bound to one transaction.
type txRepos struct {
	orders   repositories.OrderRepository
	items    repositories.OrderItemRepository
	products repositories.ProductRepository
	tables   repositories.TableRepository
}

func (s *orderService) inTx(ctx context.Context, fn func(r txRepos) error) error {
	return s.tx.WithinTx(ctx, func(q repositories.DBTX) error {
		return fn(txRepos{
			orders:   s.orderRepo.WithTx(q),
			items:    s.itemRepo.WithTx(q),
			products: s.productRepo.WithTx(q),
			tables:   s.tableRepo.WithTx(q),
		})
	})
}

func validateAddItem(input *models.AddItemInput) error {
	if input.ProductID == uuid.Nil {
		return invalid("product_id", "is required")
	}
	if err := invalidErr("quantity", common.ValidatePositiveInteger(input.Quantity, "quantity", maxItemQuantity)); err != nil {
		return err
	}
	if err := invalidErr("note", common.ValidateOptionalString(input.Note, "note", maxNoteLength)); err != nil {
		return err
	}
	input.Note = common.NullIfEmpty(input.Note)
	return nil
}

func orderErr(err error, notFound error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound
	}
	return err
}

func (s *orderService) detail(ctx context.Context, r txRepos, order *models.Order) (*models.OrderDetail, error) {
	items, err := r.items.ListByOrder(ctx, order.TenantID, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	table, err := r.tables.GetByID(ctx, order.TenantID, order.TableID)
	if err != nil {
		return nil, fmt.Errorf("load order table: %w", err)
	}
	if items == nil {
		items = []*models.OrderItem{}
	}
	return &models.OrderDetail{Order: order, TableNumber: table.TableNumber, Items: items}, nil
}

func (s *orderService) readRepos() txRepos {
	return txRepos{orders: s.orderRepo, items: s.itemRepo, products: s.productRepo, tables: s.tableRepo}
}

func (s *orderService) GetActiveOrder(ctx context.Context, tableID uuid.UUID) (*models.OrderDetail, error) {
	p, err := access.Authorize(ctx, access.ViewOrders)
	if err != nil {
		return nil, err
	}
	if _, err := s.tableRepo.GetByID(ctx, p.TenantID, tableID); err != nil {
		return nil, orderErr(err, ErrTableNotFound)
	}
	order, err := s.orderRepo.GetActiveByTable(ctx, p.TenantID, tableID, false)
	if err != nil {
		return nil, orderErr(err, ErrNoActiveOrder)
	}
	return s.detail(ctx, s.readRepos(), order)
}

func (s *orderService) AddItem(ctx context.Context, tableID uuid.UUID, input *models.AddItemInput) (*models.OrderDetail, error) {
	p, err := access.Authorize(ctx, access.TakeOrders)
	if err != nil {
		return nil, err
	}
	if err := validateAddItem(input); err != nil {
		return nil, err
	}

	var (
		result  *models.OrderDetail
		created bool
	)
	err = s.inTx(ctx, func(r txRepos) error {
		if _, err := r.tables.GetByID(ctx, p.TenantID, tableID); err != nil {
			return orderErr(err, ErrTableNotFound)
		}

		order, err := r.orders.GetActiveByTable(ctx, p.TenantID, tableID, true)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			if order, err = s.openOrder(ctx, r, p, tableID); err != nil {
				return err
			}
			created = true
		case err != nil:
			return err
		}

		if err := s.addItem(ctx, r, order, input); err != nil {
			return err
		}
		result, err = s.detail(ctx, r, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.metrics.OrderOpened()
		s.notify(ctx, p.TenantID, realtime.EntityOrder, result.ID, realtime.ActionCreated)
		s.notify(ctx, p.TenantID, realtime.EntityTable, tableID, realtime.ActionUpdated)
	}
	s.notify(ctx, p.TenantID, realtime.EntityOrderItem, result.ID, realtime.ActionCreated)
	return result, nil
}

func (s *orderService) openOrder(ctx context.Context, r txRepos, p common.Principal, tableID uuid.UUID) (*models.Order, error) {
	number, err := r.orders.NextOrderNumber(ctx, p.TenantID)
	if err != nil {
		return nil, fmt.Errorf("allocate order number: %w", err)
	}
	createdBy := p.UserID
	order := &models.Order{
		ID:          uuid.New(),
		TenantID:    p.TenantID,
		TableID:     tableID,
		OrderNumber: number,
		Status:      models.OrderOpen,
		CreatedBy:   &createdBy,
	}
	if err := r.orders.Create(ctx, order); err != nil {
		if repositories.IsUniqueViolation(err, repositories.ConstraintActiveOrder) {
			return nil, ErrTableBusy
		}
		return nil, err
	}
	if _, err := r.tables.RefreshStatus(ctx, p.TenantID, tableID); err != nil {
		return nil, fmt.Errorf("refresh table status: %w", err)
	}
	return order, nil
}

// addItem appends a line to a locked order and recomputes its total.
func (s *orderService) addItem(ctx context.Context, r txRepos, order *models.Order, input *models.AddItemInput) error {
	switch order.Status {
	case models.OrderPaid:
		return ErrOrderPaid
	case models.OrderSent:
		if !s.cfg.AllowItemsAfterSent {
			return ErrOrderSent
		}
	}

	product, err := r.products.GetForUpdate(ctx, order.TenantID, input.ProductID)
	if err != nil {
		return orderErr(err, ErrProductNotFound)
	}
	if !product.IsActive {
		return ErrProductInactive
	}
	if product.StockEnabled {
		if input.Quantity > product.StockQuantity {
			return ErrInsufficientStock
		}
		product.StockQuantity -= input.Quantity
		ApplyStockPolicy(product)
		if err := r.products.Update(ctx, product); err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}
	}

	item := &models.OrderItem{
		ID:          uuid.New(),
		TenantID:    order.TenantID,
		OrderID:     order.ID,
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    input.Quantity,
		Price:       product.Price,
		Note:        input.Note,
	}
	if err := r.items.Create(ctx, item); err != nil {
		return err
	}

	total, err := r.orders.RecomputeTotal(ctx, order.TenantID, order.ID)
	if err != nil {
		return fmt.Errorf("recompute total: %w", err)
	}
	order.TotalPrice = total
	return nil
}

func (s *orderService) AddItemToOrder(ctx context.Context, orderID uuid.UUID, input *models.AddItemInput) (*models.OrderDetail, error) {
	p, err := access.Authorize(ctx, access.TakeOrders)
	if err != nil {
		return nil, err
	}
	if err := validateAddItem(input); err != nil {
		return nil, err
	}

	var result *models.OrderDetail
	err = s.inTx(ctx, func(r txRepos) error {
		order, err := r.orders.GetForUpdate(ctx, p.TenantID, orderID)
		if err != nil {
			return orderErr(err, ErrOrderNotFound)
		}
		if err := s.addItem(ctx, r, order, input); err != nil {
			return err
		}
		result, err = s.detail(ctx, r, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p.TenantID, realtime.EntityOrderItem, orderID, realtime.ActionCreated)
	return result, nil
}

// lockItem locks the item's order and re-reads the item under that lock.
func (s *orderService) lockItem(ctx context.Context, r txRepos, tenantID, itemID uuid.UUID) (*models.Order, *models.OrderItem, error) {
	item, err := r.items.GetByID(ctx, tenantID, itemID)
	if err != nil {
		return nil, nil, orderErr(err, ErrItemNotFound)
	}
	order, err := r.orders.GetForUpdate(ctx, tenantID, item.OrderID)
	if err != nil {
		return nil, nil, orderErr(err, ErrOrderNotFound)
	}
	item, err = r.items.GetByID(ctx, tenantID, itemID)
	if err != nil {
		return nil, nil, orderErr(err, ErrItemNotFound)
	}
	if order.Status == models.OrderPaid {
		return nil, nil, ErrOrderPaid
	}
	if item.IsSentToKitchen {
		return nil, nil, ErrItemAlreadySent
	}
	return order, item, nil
}

// adjustStock moves delta units out of (positive) or back into (negative) a
// tracked product's stock.
func adjustStock(ctx context.Context, r txRepos, tenantID, productID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	product, err := r.products.GetForUpdate(ctx, tenantID, productID)
	if err != nil {
		return orderErr(err, ErrProductNotFound)
	}
	if !product.StockEnabled {
		return nil
	}
	if delta > product.StockQuantity {
		return ErrInsufficientStock
	}
	product.StockQuantity -= delta
	ApplyStockPolicy(product)
	return r.products.Update(ctx, product)
}

func (s *orderService) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*models.OrderDetail, error) {
	p, err := access.Authorize(ctx, access.TakeOrders)
	if err != nil {
		return nil, err
	}
	if err := invalidErr("quantity", common.ValidatePositiveInteger(quantity, "quantity", maxItemQuantity)); err != nil {
		return nil, err
	}

	var result *models.OrderDetail
	err = s.inTx(ctx, func(r txRepos) error {
		order, item, err := s.lockItem(ctx, r, p.TenantID, itemID)
		if err != nil {
			return err
		}
		if err := adjustStock(ctx, r, p.TenantID, item.ProductID, quantity-item.Quantity); err != nil {
			return err
		}
		if err := r.items.UpdateQuantity(ctx, p.TenantID, item.ID, quantity); err != nil {
			return orderErr(err, ErrItemNotFound)
		}
		if order.TotalPrice, err = r.orders.RecomputeTotal(ctx, p.TenantID, order.ID); err != nil {
			return fmt.Errorf("recompute total: %w", err)
		}
		result, err = s.detail(ctx, r, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p.TenantID, realtime.EntityOrderItem, itemID, realtime.ActionUpdated)
	return result, nil
}

func (s *orderService) RemoveItem(ctx context.Context, itemID uuid.UUID) (*models.OrderDetail, error) {
	p, err := access.Authorize(ctx, access.TakeOrders)
	if err != nil {
		return nil, err
	}

	var (
		result    *models.OrderDetail
		tableID   uuid.UUID
		discarded bool
	)
	err = s.inTx(ctx, func(r txRepos) error {
		order, item, err := s.lockItem(ctx, r, p.TenantID, itemID)
		if err != nil {
			return err
		}
		tableID = order.TableID
		if err := adjustStock(ctx, r, p.TenantID, item.ProductID, -item.Quantity); err != nil {
			return err
		}
		if err := r.items.Delete(ctx, p.TenantID, item.ID); err != nil {
			return orderErr(err, ErrItemNotFound)
		}

		remaining, _, err := r.items.Count(ctx, p.TenantID, order.ID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			// Nothing left and nothing sent: the visit never happened.
			if err := r.orders.Delete(ctx, p.TenantID, order.ID); err != nil {
				return err
			}
			if _, err := r.tables.RefreshStatus(ctx, p.TenantID, order.TableID); err != nil {
				return fmt.Errorf("refresh table status: %w", err)
			}
			discarded = true
			return nil
		}

		if order.TotalPrice, err = r.orders.RecomputeTotal(ctx, p.TenantID, order.ID); err != nil {
			return fmt.Errorf("recompute total: %w", err)
		}
		result, err = s.detail(ctx, r, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, p.TenantID, realtime.EntityOrderItem, itemID, realtime.ActionDeleted)
	if discarded {
		s.notify(ctx, p.TenantID, realtime.EntityTable, tableID, realtime.ActionUpdated)
	}
	return result, nil
}

func (s *orderService) SendToKitchen(ctx context.Context, orderID uuid.UUID) (*models.OrderDetail, error) {
	p, err := access.Authorize(ctx, access.TakeOrders)
	if err != nil {
		return nil, err
	}

	var result *models.OrderDetail
	err = s.inTx(ctx, func(r txRepos) error {
		order, err := r.orders.GetForUpdate(ctx, p.TenantID, orderID)
		if err != nil {
			return orderErr(err, ErrOrderNotFound)
		}
		if order.Status == models.OrderPaid {
			return ErrOrderPaid
		}
		total, _, err := r.items.Count(ctx, p.TenantID, order.ID)
		if err != nil {
			return err
		}
		if total == 0 {
			return ErrEmptyOrder
		}
		if _, err := r.items.MarkSentToKitchen(ctx, p.TenantID, order.ID); err != nil {
			return fmt.Errorf("mark items sent: %w", err)
		}
		if order.Status == models.OrderOpen {
			if err := r.orders.MarkSent(ctx, p.TenantID, order.ID); err != nil {
				return fmt.Errorf("mark order sent: %w", err)
			}
			order.Status = models.OrderSent
		}
		result, err = s.detail(ctx, r, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, p.TenantID, realtime.EntityOrder, orderID, realtime.ActionUpdated)
	return result, nil
}

func (s *orderService) Pay(ctx context.Context, orderID uuid.UUID, method models.PaymentMethod) (*models.OrderDetail, error) {
	p, err := access.Authorize(ctx, access.SettleOrders)
	if err != nil {
		return nil, err
	}
	method = models.PaymentMethod(strings.TrimSpace(string(method)))
	if !method.Valid() {
		return nil, invalid("payment_method", "must be one of cash, credit_card, bank_transfer")
	}

	var (
		result     *models.OrderDetail
		prevStatus models.OrderStatus
	)
	err = s.inTx(ctx, func(r txRepos) error {
		order, err := r.orders.GetForUpdate(ctx, p.TenantID, orderID)
		if err != nil {
			return orderErr(err, ErrOrderNotFound)
		}
		if order.Status == models.OrderPaid {
			return ErrOrderAlreadyPaid
		}
		prevStatus = order.Status

		paidAt, err := r.orders.MarkPaid(ctx, p.TenantID, order.ID, method)
		if err != nil {
			return orderErr(err, ErrOrderAlreadyPaid)
		}
		order.Status = models.OrderPaid
		order.PaidAt = &paidAt
		order.PaymentMethod = &method

		if _, err := r.tables.RefreshStatus(ctx, p.TenantID, order.TableID); err != nil {
			return fmt.Errorf("refresh table status: %w", err)
		}
		result, err = s.detail(ctx, r, order)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderPaid(string(method))
	changedBy := p.UserID
	if err := s.audit.LogActivity(ctx, p.TenantID, "orders", orderID.String(), models.ActionOrderPaid, &changedBy,
		models.JSONB{"status": string(prevStatus)},
		models.JSONB{"status": string(models.OrderPaid), "payment_method": string(method), "total_price": result.TotalPrice}); err != nil {
		s.logger.Warn("failed to audit payment", zap.String("order_id", orderID.String()), zap.Error(err))
	}
	if s.cache != nil {
		if err := s.cache.InvalidateReports(ctx, p.TenantID, s.now()); err != nil {
			s.logger.Warn("failed to invalidate report cache", zap.Error(err))
		}
	}
	s.notify(ctx, p.TenantID, realtime.EntityOrder, orderID, realtime.ActionUpdated)
	s.notify(ctx, p.TenantID, realtime.EntityTable, result.TableID, realtime.ActionUpdated)
	return result, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderDetail, error) {
	p, err := access.Authorize(ctx, access.ViewOrders)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, p.TenantID, orderID)
	if err != nil {
		return nil, orderErr(err, ErrOrderNotFound)
	}
	return s.detail(ctx, s.readRepos(), order)
}

func (s *orderService) ListOrders(ctx context.Context, filter *models.OrderFilter) ([]*models.OrderSummary, error) {
	p, err := access.Authorize(ctx, access.ReviewOrders)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &models.OrderFilter{}
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, invalid("status", "must be one of open, sent, paid")
	}
	limit, offset, err := common.ValidatePaginationParams(filter.Limit, filter.Offset)
	if err != nil {
		return nil, invalid("offset", err.Error())
	}
	filter.Limit, filter.Offset = limit, offset
	return s.orderRepo.List(ctx, p.TenantID, filter)
}

func (s *orderService) DailyTotal(ctx context.Context) (*models.DailyTotal, error) {
	p, err := access.Authorize(ctx, access.ReviewOrders)
	if err != nil {
		return nil, err
	}
	now := s.now()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	total, count, err := s.orderRepo.PaidTotalSince(ctx, p.TenantID, midnight)
	if err != nil {
		return nil, err
	}
	return &models.DailyTotal{Date: midnight.Format("2006-01-02"), Total: models.RoundMoney(total), OrderCount: count}, nil
}
