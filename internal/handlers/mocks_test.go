package handlers

import (
	"context"

	"tabletop/internal/models"
	"tabletop/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockOrderService struct {
	mock.Mock
}

func orderDetail(args mock.Arguments) (*models.OrderDetail, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderDetail), args.Error(1)
}

func (m *MockOrderService) GetActiveOrder(ctx context.Context, tableID uuid.UUID) (*models.OrderDetail, error) {
	return orderDetail(m.Called(ctx, tableID))
}

func (m *MockOrderService) AddItem(ctx context.Context, tableID uuid.UUID, input *models.AddItemInput) (*models.OrderDetail, error) {
	return orderDetail(m.Called(ctx, tableID, input))
}

func (m *MockOrderService) AddItemToOrder(ctx context.Context, orderID uuid.UUID, input *models.AddItemInput) (*models.OrderDetail, error) {
	return orderDetail(m.Called(ctx, orderID, input))
}

func (m *MockOrderService) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*models.OrderDetail, error) {
	return orderDetail(m.Called(ctx, itemID, quantity))
}

func (m *MockOrderService) RemoveItem(ctx context.Context, itemID uuid.UUID) (*models.OrderDetail, error) {
	return orderDetail(m.Called(ctx, itemID))
}

func (m *MockOrderService) SendToKitchen(ctx context.Context, orderID uuid.UUID) (*models.OrderDetail, error) {
	return orderDetail(m.Called(ctx, orderID))
}

func (m *MockOrderService) Pay(ctx context.Context, orderID uuid.UUID, method models.PaymentMethod) (*models.OrderDetail, error) {
	return orderDetail(m.Called(ctx, orderID, method))
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.OrderDetail, error) {
	return orderDetail(m.Called(ctx, orderID))
}

func (m *MockOrderService) ListOrders(ctx context.Context, filter *models.OrderFilter) ([]*models.OrderSummary, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.OrderSummary), args.Error(1)
}

func (m *MockOrderService) DailyTotal(ctx context.Context) (*models.DailyTotal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyTotal), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req *services.LoginRequest) (*models.TokenResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenResponse), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

func (m *MockAuthService) ValidateToken(token string) (*services.SessionClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SessionClaims), args.Error(1)
}

func (m *MockAuthService) LoadSession(ctx context.Context, claims *services.SessionClaims) (*models.Session, error) {
	args := m.Called(ctx, claims)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockAuthService) SecretKey() []byte {
	return []byte("test-secret")
}

type MockRegistrationService struct {
	mock.Mock
}

func (m *MockRegistrationService) RegisterRestaurant(ctx context.Context, req *services.RegisterRestaurantRequest) (*services.RegistrationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RegistrationResult), args.Error(1)
}

func (m *MockRegistrationService) RegisterWaiter(ctx context.Context, req *services.RegisterWaiterRequest) (*services.RegistrationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.RegistrationResult), args.Error(1)
}

type MockStaffService struct {
	mock.Mock
}

func (m *MockStaffService) Profile(ctx context.Context, id uuid.UUID) (*models.StaffMember, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StaffMember), args.Error(1)
}

func (m *MockStaffService) Me(ctx context.Context) (*models.StaffMember, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StaffMember), args.Error(1)
}

func (m *MockStaffService) ListStaff(ctx context.Context) ([]*models.StaffMember, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.StaffMember), args.Error(1)
}

func (m *MockStaffService) ListWaiters(ctx context.Context) ([]*models.StaffMember, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*models.StaffMember), args.Error(1)
}

func (m *MockStaffService) RemoveWaiter(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Snapshot(ctx context.Context) (*models.DashboardSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DashboardSnapshot), args.Error(1)
}

func (m *MockDashboardService) Stream(ctx context.Context, sink services.StreamSink) error {
	return m.Called(ctx, sink).Error(0)
}
