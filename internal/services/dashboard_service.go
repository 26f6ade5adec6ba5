package services

import (
	"context"
	"time"

	"tabletop/internal/access"
	"tabletop/internal/models"
	"tabletop/internal/realtime"
	"tabletop/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StreamSink receives what a dashboard stream emits.
type StreamSink interface {
	Snapshot(snapshot *models.DashboardSnapshot) error
	Heartbeat() error
}

type DashboardConfig struct {
	Heartbeat time.Duration
	// Debounce is how long a burst of change events is collected before one refetch.
	Debounce time.Duration
}

type DashboardService interface {
	Snapshot(ctx context.Context) (*models.DashboardSnapshot, error)
	// Stream writes an initial snapshot and then a fresh one after every burst
	// of changes, until ctx ends or the sink fails.
	Stream(ctx context.Context, sink StreamSink) error
}

type dashboardService struct {
	tableRepo  repositories.TableRepository
	orderRepo  repositories.OrderRepository
	itemRepo   repositories.OrderItemRepository
	subscriber realtime.Subscriber
	cfg        DashboardConfig
	logger     *zap.Logger
}

func NewDashboardService(tableRepo repositories.TableRepository, orderRepo repositories.OrderRepository, itemRepo repositories.OrderItemRepository, subscriber realtime.Subscriber, cfg DashboardConfig, logger *zap.Logger) DashboardService {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 25 * time.Second
	}
	return &dashboardService{
		tableRepo:  tableRepo,
		orderRepo:  orderRepo,
		itemRepo:   itemRepo,
		subscriber: subscriber,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *dashboardService) Snapshot(ctx context.Context) (*models.DashboardSnapshot, error) {
	p, err := access.Authorize(ctx, access.ViewTables)
	if err != nil {
		return nil, err
	}
	return s.snapshot(ctx, p.TenantID)
}

func (s *dashboardService) snapshot(ctx context.Context, tenantID uuid.UUID) (*models.DashboardSnapshot, error) {
	views, err := s.tableRepo.ListViews(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(orders))
	details := make(map[uuid.UUID]*models.OrderDetail, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
		details[o.ID] = &models.OrderDetail{Order: o, Items: []*models.OrderItem{}}
	}
	items, err := s.itemRepo.ListByOrders(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if d, ok := details[item.OrderID]; ok {
			d.Items = append(d.Items, item)
		}
	}

	snap := &models.DashboardSnapshot{
		TenantID:    tenantID,
		Tables:      make([]*models.DashboardTable, 0, len(views)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, v := range views {
		tile := &models.DashboardTable{TableView: *v}
		if v.ActiveOrderID != nil {
			if d, ok := details[*v.ActiveOrderID]; ok {
				d.TableNumber = v.TableNumber
				tile.Order = d
			}
		}
		if tile.Occupied {
			snap.OccupiedCount++
		}
		snap.Tables = append(snap.Tables, tile)
	}
	return snap, nil
}

func (s *dashboardService) Stream(ctx context.Context, sink StreamSink) error {
	p, err := access.Authorize(ctx, access.ViewTables)
	if err != nil {
		return err
	}

	// Subscribe before the first fetch so no change between them is missed.
	events := s.subscriber.Subscribe(ctx, p.TenantID)

	snap, err := s.snapshot(ctx, p.TenantID)
	if err != nil {
		return err
	}
	if err := sink.Snapshot(snap); err != nil {
		return err
	}

	heartbeat := time.NewTicker(s.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-heartbeat.C:
			if err := sink.Heartbeat(); err != nil {
				return err
			}
		case _, ok := <-events:
			if !ok {
				return nil
			}
			if !s.collectBurst(ctx, events) {
				return nil
			}
			snap, err := s.snapshot(ctx, p.TenantID)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Warn("dashboard refetch failed", zap.String("tenant_id", p.TenantID.String()), zap.Error(err))
				continue
			}
			if err := sink.Snapshot(snap); err != nil {
				return err
			}
		}
	}
}

// collectBurst waits out the debounce window and drains everything queued, so
// one refetch covers the whole burst. It reports false when the stream is over.
func (s *dashboardService) collectBurst(ctx context.Context, events <-chan realtime.Event) bool {
	if s.cfg.Debounce > 0 {
		timer := time.NewTimer(s.cfg.Debounce)
		defer timer.Stop()
	wait:
		for {
			select {
			case <-ctx.Done():
				return false
			case _, ok := <-events:
				if !ok {
					return false
				}
			case <-timer.C:
				break wait
			}
		}
	}
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}
