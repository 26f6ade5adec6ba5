package services

import (
	"context"
	"errors"

	"tabletop/internal/access"
	"tabletop/internal/common"
	"tabletop/internal/models"
	"tabletop/internal/realtime"
	"tabletop/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxTableNumber = 10000

type TableService interface {
	Create(ctx context.Context, tableNumber int) (*models.Table, error)
	Get(ctx context.Context, id uuid.UUID) (*models.TableView, error)
	List(ctx context.Context) ([]*models.TableView, error)
	// Delete removes a table that has never served an order.
	Delete(ctx context.Context, id uuid.UUID) error
}

type tableService struct {
	tableRepo repositories.TableRepository
	notifier
}

func NewTableService(tableRepo repositories.TableRepository, publisher realtime.Publisher, logger *zap.Logger) TableService {
	return &tableService{tableRepo: tableRepo, notifier: notifier{publisher: publisher, logger: logger}}
}

func (s *tableService) Create(ctx context.Context, tableNumber int) (*models.Table, error) {
	p, err := access.Authorize(ctx, access.ManageTables)
	if err != nil {
		return nil, err
	}
	if err := invalidErr("table_number", common.ValidatePositiveInteger(tableNumber, "table_number", maxTableNumber)); err != nil {
		return nil, err
	}

	table := &models.Table{
		ID:          uuid.New(),
		TenantID:    p.TenantID,
		TableNumber: tableNumber,
		Status:      models.TableEmpty,
	}
	if err := s.tableRepo.Create(ctx, table); err != nil {
		if repositories.IsUniqueViolation(err, repositories.ConstraintTableNumber) {
			return nil, ErrDuplicateTableNumber
		}
		return nil, err
	}
	s.notify(ctx, p.TenantID, realtime.EntityTable, table.ID, realtime.ActionCreated)
	return table, nil
}

func (s *tableService) Get(ctx context.Context, id uuid.UUID) (*models.TableView, error) {
	p, err := access.Authorize(ctx, access.ViewTables)
	if err != nil {
		return nil, err
	}
	view, err := s.tableRepo.GetView(ctx, p.TenantID, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrTableNotFound
	}
	return view, err
}

func (s *tableService) List(ctx context.Context) ([]*models.TableView, error) {
	p, err := access.Authorize(ctx, access.ViewTables)
	if err != nil {
		return nil, err
	}
	return s.tableRepo.ListViews(ctx, p.TenantID)
}

func (s *tableService) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := access.Authorize(ctx, access.ManageTables)
	if err != nil {
		return err
	}
	view, err := s.tableRepo.GetView(ctx, p.TenantID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrTableNotFound
		}
		return err
	}
	if view.Occupied {
		return ErrTableInUse
	}
	if err := s.tableRepo.Delete(ctx, p.TenantID, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// An order was opened between the check and the delete.
			return ErrTableInUse
		}
		if repositories.IsForeignKeyViolation(err, repositories.ConstraintOrdersTable) {
			return ErrTableHasOrders
		}
		return err
	}
	s.notify(ctx, p.TenantID, realtime.EntityTable, id, realtime.ActionDeleted)
	return nil
}
