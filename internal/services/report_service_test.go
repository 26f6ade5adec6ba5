package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"tabletop/internal/access"
	"tabletop/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type MockReportRepository struct {
	mock.Mock
}

func (m *MockReportRepository) Summary(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (float64, int, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).(float64), args.Int(1), args.Error(2)
}

func (m *MockReportRepository) WaiterStats(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*models.WaiterStats, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WaiterStats), args.Error(1)
}

func (m *MockReportRepository) PaymentMethodStats(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*models.PaymentMethodStats, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PaymentMethodStats), args.Error(1)
}

func (m *MockReportRepository) PaidOrders(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*models.OrderSummary, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.OrderSummary), args.Error(1)
}

type ReportServiceTestSuite struct {
	suite.Suite
	repo     *MockReportRepository
	cache    *MockCacheService
	service  *reportService
	tenantID uuid.UUID
	now      time.Time
	adminCtx context.Context
}

func (suite *ReportServiceTestSuite) SetupTest() {
	suite.repo = new(MockReportRepository)
	suite.cache = new(MockCacheService)
	suite.now = time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	suite.service = NewReportService(suite.repo, suite.cache, time.Minute, zap.NewNop()).(*reportService)
	suite.service.now = func() time.Time { return suite.now }
	suite.tenantID = uuid.New()
	suite.adminCtx = principalCtx(suite.tenantID, models.RoleAdmin)
}

func TestReportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceTestSuite))
}

func (suite *ReportServiceTestSuite) TestTodayReport() {
	midnight := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	suite.cache.On("GetReport", mock.Anything, suite.tenantID, models.RangeToday, suite.now).Return(nil, nil)
	suite.repo.On("Summary", mock.Anything, suite.tenantID, midnight, suite.now).Return(100.0, 3, nil)
	suite.repo.On("WaiterStats", mock.Anything, suite.tenantID, midnight, suite.now).Return(nil, nil)
	suite.repo.On("PaymentMethodStats", mock.Anything, suite.tenantID, midnight, suite.now).
		Return([]*models.PaymentMethodStats{{Method: models.PaymentCash, OrderCount: 3, Revenue: 100}}, nil)
	suite.cache.On("SetReport", mock.Anything, suite.tenantID, mock.Anything, time.Minute).Return(nil)

	report, err := suite.service.Sales(suite.adminCtx, "")

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.RangeToday, report.Range)
	assert.Equal(suite.T(), 100.0, report.TotalRevenue)
	assert.Equal(suite.T(), 3, report.OrderCount)
	assert.Equal(suite.T(), 33.33, report.AverageOrderValue)
	assert.NotNil(suite.T(), report.Waiters)
	assert.Len(suite.T(), report.PaymentMethods, 1)
	suite.cache.AssertExpectations(suite.T())
}

func (suite *ReportServiceTestSuite) TestCachedReportSkipsQueries() {
	cached := &models.SalesReport{Range: models.RangeWeek, OrderCount: 9}
	suite.cache.On("GetReport", mock.Anything, suite.tenantID, models.RangeWeek, suite.now).Return(cached, nil)

	report, err := suite.service.Sales(suite.adminCtx, models.RangeWeek)

	require.NoError(suite.T(), err)
	assert.Same(suite.T(), cached, report)
	suite.repo.AssertNotCalled(suite.T(), "Summary", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ReportServiceTestSuite) TestCacheLookupFollowsTheClock() {
	suite.now = time.Date(2026, 3, 15, 0, 5, 0, 0, time.UTC)
	suite.cache.On("GetReport", mock.Anything, suite.tenantID, models.RangeToday, suite.now).Return(nil, nil)
	suite.repo.On("Summary", mock.Anything, suite.tenantID, mock.Anything, suite.now).Return(0.0, 0, nil)
	suite.repo.On("WaiterStats", mock.Anything, suite.tenantID, mock.Anything, suite.now).Return(nil, nil)
	suite.repo.On("PaymentMethodStats", mock.Anything, suite.tenantID, mock.Anything, suite.now).Return(nil, nil)
	suite.cache.On("SetReport", mock.Anything, suite.tenantID, mock.MatchedBy(func(r *models.SalesReport) bool {
		return r.To.Equal(suite.now) && r.From.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC))
	}), time.Minute).Return(nil)

	report, err := suite.service.Sales(suite.adminCtx, models.RangeToday)

	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), report.OrderCount)
	suite.cache.AssertExpectations(suite.T())
}

func (suite *ReportServiceTestSuite) TestUnknownRange() {
	_, err := suite.service.Sales(suite.adminCtx, "year")
	var verr *ValidationError
	require.ErrorAs(suite.T(), err, &verr)
	assert.Equal(suite.T(), "range", verr.Field)
}

func (suite *ReportServiceTestSuite) TestWaiterCannotViewReports() {
	_, err := suite.service.Sales(principalCtx(suite.tenantID, models.RoleWaiter), models.RangeToday)
	assert.ErrorIs(suite.T(), err, access.ErrForbidden)
}

func (suite *ReportServiceTestSuite) TestExportPaidOrdersCSV() {
	from := suite.now.Add(-24 * time.Hour)
	paidAt := suite.now.Add(-time.Hour)
	method := models.PaymentCreditCard
	orders := []*models.OrderSummary{{
		Order: models.Order{
			OrderNumber:   12,
			Status:        models.OrderPaid,
			TotalPrice:    42.5,
			PaymentMethod: &method,
			CreatedAt:     paidAt.Add(-time.Hour),
			PaidAt:        &paidAt,
		},
		TableNumber:   3,
		CreatedByName: "Ben",
	}}
	suite.repo.On("PaidOrders", mock.Anything, suite.tenantID, from, suite.now).Return(orders, nil)

	data, count, err := suite.service.ExportPaidOrdersCSV(context.Background(), suite.tenantID, from, suite.now)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(suite.T(), err)
	require.Len(suite.T(), records, 2)
	assert.Equal(suite.T(), csvHeader, records[0])
	assert.Equal(suite.T(), []string{"12", "3", "paid", "credit_card", "42.50", "Ben",
		"2026-03-14T13:30:00Z", "2026-03-14T14:30:00Z"}, records[1])
}

func TestReportWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)

	from, to, err := ReportWindow(models.RangeWeek, now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -7), from)
	assert.Equal(t, now, to)

	from, _, err = ReportWindow(models.RangeMonth, now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -30), from)
}
