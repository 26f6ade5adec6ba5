package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"tabletop/internal/access"
	"tabletop/internal/caching"
	"tabletop/internal/models"
	"tabletop/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReportService interface {
	Sales(ctx context.Context, rng models.ReportRange) (*models.SalesReport, error)
	// ExportPaidOrdersCSV renders a tenant's paid orders in [from, to) as CSV.
	// It is used by background jobs and takes the tenant explicitly.
	ExportPaidOrdersCSV(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]byte, int, error)
}

type reportService struct {
	reportRepo repositories.ReportRepository
	cache      caching.CacheService
	cacheTTL   time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewReportService(reportRepo repositories.ReportRepository, cache caching.CacheService, cacheTTL time.Duration, logger *zap.Logger) ReportService {
	return &reportService{reportRepo: reportRepo, cache: cache, cacheTTL: cacheTTL, now: time.Now, logger: logger}
}

// ReportWindow returns the period covered by rng, ending at now.
func ReportWindow(rng models.ReportRange, now time.Time) (time.Time, time.Time, error) {
	switch rng {
	case models.RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), now, nil
	case models.RangeWeek:
		return now.AddDate(0, 0, -7), now, nil
	case models.RangeMonth:
		return now.AddDate(0, 0, -30), now, nil
	}
	return time.Time{}, time.Time{}, invalid("range", "must be one of today, week, month")
}

func (s *reportService) Sales(ctx context.Context, rng models.ReportRange) (*models.SalesReport, error) {
	p, err := access.Authorize(ctx, access.ViewReports)
	if err != nil {
		return nil, err
	}
	if rng == "" {
		rng = models.RangeToday
	}
	from, to, err := ReportWindow(rng, s.now())
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached, err := s.cache.GetReport(ctx, p.TenantID, rng, to)
		if err != nil {
			s.logger.Warn("report cache lookup failed", zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	revenue, count, err := s.reportRepo.Summary(ctx, p.TenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("sales summary: %w", err)
	}
	waiters, err := s.reportRepo.WaiterStats(ctx, p.TenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("waiter stats: %w", err)
	}
	methods, err := s.reportRepo.PaymentMethodStats(ctx, p.TenantID, from, to)
	if err != nil {
		return nil, fmt.Errorf("payment method stats: %w", err)
	}

	report := &models.SalesReport{
		Range:          rng,
		From:           from,
		To:             to,
		TotalRevenue:   models.RoundMoney(revenue),
		OrderCount:     count,
		Waiters:        waiters,
		PaymentMethods: methods,
	}
	if count > 0 {
		report.AverageOrderValue = models.RoundMoney(revenue / float64(count))
	}
	if report.Waiters == nil {
		report.Waiters = []*models.WaiterStats{}
	}
	if report.PaymentMethods == nil {
		report.PaymentMethods = []*models.PaymentMethodStats{}
	}

	if s.cache != nil {
		if err := s.cache.SetReport(ctx, p.TenantID, report, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache report", zap.Error(err))
		}
	}
	return report, nil
}

var csvHeader = []string{"order_number", "table_number", "status", "payment_method", "total_price", "created_by", "created_at", "paid_at"}

func (s *reportService) ExportPaidOrdersCSV(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]byte, int, error) {
	orders, err := s.reportRepo.PaidOrders(ctx, tenantID, from, to)
	if err != nil {
		return nil, 0, fmt.Errorf("list paid orders: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, 0, err
	}
	for _, o := range orders {
		method, paidAt := "", ""
		if o.PaymentMethod != nil {
			method = string(*o.PaymentMethod)
		}
		if o.PaidAt != nil {
			paidAt = o.PaidAt.UTC().Format(time.RFC3339)
		}
		record := []string{
			strconv.Itoa(o.OrderNumber),
			strconv.Itoa(o.TableNumber),
			string(o.Status),
			method,
			strconv.FormatFloat(o.TotalPrice, 'f', 2, 64),
			o.CreatedByName,
			o.CreatedAt.UTC().Format(time.RFC3339),
			paidAt,
		}
		if err := w.Write(record); err != nil {
			return nil, 0, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, err
	}
	return buf.Bytes(), len(orders), nil
}
