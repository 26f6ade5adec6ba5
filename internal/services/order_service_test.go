package services

import (
	"context"
	"testing"

	"tabletop/internal/access"
	"tabletop/internal/common"
	"tabletop/internal/models"
	"tabletop/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

func principalCtx(tenantID uuid.UUID, role models.Role) context.Context {
	return common.WithPrincipal(context.Background(), common.Principal{
		UserID:   uuid.New(),
		TenantID: tenantID,
		Role:     role,
	})
}

type OrderServiceTestSuite struct {
	suite.Suite
	store     *memStore
	cache     *MockCacheService
	audit     *recordingAudit
	publisher *recordingPublisher
	service   OrderService
	tables    TableService

	tenantID  uuid.UUID
	adminCtx  context.Context
	waiterCtx context.Context
	otherCtx  context.Context

	table  *models.Table
	coffee *models.Product
	tea    *models.Product
}

func (suite *OrderServiceTestSuite) SetupTest() {
	suite.store = newMemStore()
	suite.cache = new(MockCacheService)
	suite.cache.On("InvalidateReports", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	suite.audit = &recordingAudit{}
	suite.publisher = &recordingPublisher{}
	suite.service = suite.newService(OrderConfig{AllowItemsAfterSent: true})
	suite.tables = NewTableService(memTables{suite.store}, suite.publisher, zap.NewNop())

	suite.tenantID = uuid.New()
	suite.adminCtx = principalCtx(suite.tenantID, models.RoleAdmin)
	suite.waiterCtx = principalCtx(suite.tenantID, models.RoleWaiter)
	suite.otherCtx = principalCtx(uuid.New(), models.RoleAdmin)

	suite.table = suite.store.addTable(suite.tenantID, 3)
	suite.coffee = suite.store.addProduct(suite.tenantID, "Coffee", 50.00)
	suite.tea = suite.store.addProduct(suite.tenantID, "Tea", 3.50)
}

func (suite *OrderServiceTestSuite) newService(cfg OrderConfig) OrderService {
	s := suite.store
	return NewOrderService(s, memOrders{s}, memItems{s}, memProducts{s}, memTables{s},
		suite.cache, suite.audit, suite.publisher, nil, cfg, zap.NewNop())
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func (suite *OrderServiceTestSuite) addCoffee(qty int) *models.OrderDetail {
	detail, err := suite.service.AddItem(suite.waiterCtx, suite.table.ID, &models.AddItemInput{ProductID: suite.coffee.ID, Quantity: qty})
	require.NoError(suite.T(), err)
	return detail
}

func (suite *OrderServiceTestSuite) TestOpenTableAndAddItems() {
	_, err := suite.service.GetActiveOrder(suite.waiterCtx, suite.table.ID)
	assert.ErrorIs(suite.T(), err, ErrNoActiveOrder)

	view, err := suite.tables.Get(suite.waiterCtx, suite.table.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), view.Occupied)

	detail := suite.addCoffee(2)

	assert.Equal(suite.T(), models.OrderOpen, detail.Status)
	assert.Equal(suite.T(), 100.00, detail.TotalPrice)
	assert.Equal(suite.T(), 3, detail.TableNumber)
	assert.Equal(suite.T(), 1, detail.OrderNumber)
	require.Len(suite.T(), detail.Items, 1)
	assert.Equal(suite.T(), 50.00, detail.Items[0].Price)
	assert.Equal(suite.T(), "Coffee", detail.Items[0].ProductName)

	view, err = suite.tables.Get(suite.waiterCtx, suite.table.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), view.Occupied)
	assert.Equal(suite.T(), models.TableOccupied, suite.store.tables[suite.table.ID].Status)

	active, err := suite.service.GetActiveOrder(suite.waiterCtx, suite.table.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), detail.ID, active.ID)

	assert.Equal(suite.T(),
		[]realtime.Entity{realtime.EntityOrder, realtime.EntityTable, realtime.EntityOrderItem},
		suite.publisher.entities())
}

func (suite *OrderServiceTestSuite) TestSecondAddReusesOpenOrder() {
	first := suite.addCoffee(1)
	second := suite.addCoffee(1)

	assert.Equal(suite.T(), first.ID, second.ID)
	assert.Len(suite.T(), second.Items, 2)
	assert.Len(suite.T(), suite.store.orders, 1)
}

func (suite *OrderServiceTestSuite) TestPayReleasesTableAndCountsRevenue() {
	detail := suite.addCoffee(2)

	paid, err := suite.service.Pay(suite.adminCtx, detail.ID, models.PaymentCash)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OrderPaid, paid.Status)
	require.NotNil(suite.T(), paid.PaymentMethod)
	assert.Equal(suite.T(), models.PaymentCash, *paid.PaymentMethod)
	assert.NotNil(suite.T(), paid.PaidAt)

	view, err := suite.tables.Get(suite.adminCtx, suite.table.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), view.Occupied)
	assert.Equal(suite.T(), models.TableEmpty, suite.store.tables[suite.table.ID].Status)

	daily, err := suite.service.DailyTotal(suite.adminCtx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 100.00, daily.Total)
	assert.Equal(suite.T(), 1, daily.OrderCount)

	assert.Contains(suite.T(), suite.audit.actions(), models.ActionOrderPaid)
	suite.cache.AssertCalled(suite.T(), "InvalidateReports", mock.Anything, suite.tenantID, mock.Anything)

	// The next guest at the same table gets a fresh order.
	next := suite.addCoffee(1)
	assert.NotEqual(suite.T(), detail.ID, next.ID)
	assert.Equal(suite.T(), 2, next.OrderNumber)
}

func (suite *OrderServiceTestSuite) TestPayTwiceKeepsFirstPayment() {
	detail := suite.addCoffee(2)

	first, err := suite.service.Pay(suite.adminCtx, detail.ID, models.PaymentCreditCard)
	require.NoError(suite.T(), err)

	_, err = suite.service.Pay(suite.adminCtx, detail.ID, models.PaymentCash)
	assert.ErrorIs(suite.T(), err, ErrOrderAlreadyPaid)

	stored := suite.store.orders[detail.ID]
	assert.Equal(suite.T(), models.PaymentCreditCard, *stored.PaymentMethod)
	assert.Equal(suite.T(), *first.PaidAt, *stored.PaidAt)

	daily, err := suite.service.DailyTotal(suite.adminCtx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, daily.OrderCount)
	assert.Equal(suite.T(), 100.00, daily.Total)
}

func (suite *OrderServiceTestSuite) TestPayRequiresAdminAndValidMethod() {
	detail := suite.addCoffee(1)

	_, err := suite.service.Pay(suite.waiterCtx, detail.ID, models.PaymentCash)
	assert.ErrorIs(suite.T(), err, access.ErrForbidden)

	_, err = suite.service.Pay(suite.adminCtx, detail.ID, "bitcoin")
	var verr *ValidationError
	require.ErrorAs(suite.T(), err, &verr)
	assert.Equal(suite.T(), "payment_method", verr.Field)

	assert.Equal(suite.T(), models.OrderOpen, suite.store.orders[detail.ID].Status)
}

func (suite *OrderServiceTestSuite) TestTotalFollowsEveryItemMutation() {
	detail := suite.addCoffee(2)
	coffeeLine := detail.Items[0].ID

	detail, err := suite.service.AddItemToOrder(suite.waiterCtx, detail.ID, &models.AddItemInput{ProductID: suite.tea.ID, Quantity: 1})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 103.50, detail.TotalPrice)
	assert.Equal(suite.T(), models.SumItems(detail.Items), detail.TotalPrice)

	// Later price edits do not touch captured prices.
	suite.store.products[suite.coffee.ID].Price = 60.00

	detail, err = suite.service.UpdateItemQuantity(suite.waiterCtx, coffeeLine, 3)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 153.50, detail.TotalPrice)
	assert.Equal(suite.T(), models.SumItems(detail.Items), detail.TotalPrice)

	var teaLine uuid.UUID
	for _, item := range detail.Items {
		if item.ProductID == suite.tea.ID {
			teaLine = item.ID
		}
	}
	detail, err = suite.service.RemoveItem(suite.waiterCtx, teaLine)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), detail)
	assert.Equal(suite.T(), 150.00, detail.TotalPrice)
	assert.Equal(suite.T(), models.SumItems(detail.Items), detail.TotalPrice)
}

func (suite *OrderServiceTestSuite) TestRemovingLastItemDiscardsOrder() {
	detail := suite.addCoffee(1)

	result, err := suite.service.RemoveItem(suite.waiterCtx, detail.Items[0].ID)
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), result)

	assert.Empty(suite.T(), suite.store.orders)
	assert.Equal(suite.T(), models.TableEmpty, suite.store.tables[suite.table.ID].Status)
	_, err = suite.service.GetActiveOrder(suite.waiterCtx, suite.table.ID)
	assert.ErrorIs(suite.T(), err, ErrNoActiveOrder)
}

func (suite *OrderServiceTestSuite) TestSendToKitchenLocksSentItems() {
	detail := suite.addCoffee(2)
	line := detail.Items[0].ID

	sent, err := suite.service.SendToKitchen(suite.waiterCtx, detail.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OrderSent, sent.Status)
	assert.True(suite.T(), sent.Items[0].IsSentToKitchen)
	assert.NotNil(suite.T(), sent.Items[0].SentAt)

	_, err = suite.service.UpdateItemQuantity(suite.waiterCtx, line, 5)
	assert.ErrorIs(suite.T(), err, ErrItemAlreadySent)
	_, err = suite.service.RemoveItem(suite.waiterCtx, line)
	assert.ErrorIs(suite.T(), err, ErrItemAlreadySent)

	more, err := suite.service.AddItemToOrder(suite.waiterCtx, detail.ID, &models.AddItemInput{ProductID: suite.tea.ID, Quantity: 1})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OrderSent, more.Status)
	assert.Len(suite.T(), more.Items, 2)

	// Sending again only flags the new line.
	again, err := suite.service.SendToKitchen(suite.waiterCtx, detail.ID)
	require.NoError(suite.T(), err)
	for _, item := range again.Items {
		assert.True(suite.T(), item.IsSentToKitchen)
	}
}

func (suite *OrderServiceTestSuite) TestItemsAfterSentCanBeDisabled() {
	strict := suite.newService(OrderConfig{AllowItemsAfterSent: false})
	detail := suite.addCoffee(1)
	_, err := strict.SendToKitchen(suite.waiterCtx, detail.ID)
	require.NoError(suite.T(), err)

	_, err = strict.AddItem(suite.waiterCtx, suite.table.ID, &models.AddItemInput{ProductID: suite.tea.ID, Quantity: 1})
	assert.ErrorIs(suite.T(), err, ErrOrderSent)
}

func (suite *OrderServiceTestSuite) TestPaidOrderRejectsChanges() {
	detail := suite.addCoffee(1)
	_, err := suite.service.Pay(suite.adminCtx, detail.ID, models.PaymentBankTransfer)
	require.NoError(suite.T(), err)

	_, err = suite.service.AddItemToOrder(suite.waiterCtx, detail.ID, &models.AddItemInput{ProductID: suite.tea.ID, Quantity: 1})
	assert.ErrorIs(suite.T(), err, ErrOrderPaid)
	_, err = suite.service.SendToKitchen(suite.waiterCtx, detail.ID)
	assert.ErrorIs(suite.T(), err, ErrOrderPaid)
	_, err = suite.service.UpdateItemQuantity(suite.waiterCtx, detail.Items[0].ID, 4)
	assert.ErrorIs(suite.T(), err, ErrOrderPaid)
}

func (suite *OrderServiceTestSuite) TestCrossTenantAccessIsNotFound() {
	detail := suite.addCoffee(1)

	_, err := suite.service.GetOrder(suite.otherCtx, detail.ID)
	assert.ErrorIs(suite.T(), err, ErrOrderNotFound)
	_, err = suite.service.Pay(suite.otherCtx, detail.ID, models.PaymentCash)
	assert.ErrorIs(suite.T(), err, ErrOrderNotFound)
	_, err = suite.service.AddItem(suite.otherCtx, suite.table.ID, &models.AddItemInput{ProductID: suite.coffee.ID, Quantity: 1})
	assert.ErrorIs(suite.T(), err, ErrTableNotFound)
	_, err = suite.service.AddItemToOrder(suite.otherCtx, detail.ID, &models.AddItemInput{ProductID: suite.coffee.ID, Quantity: 1})
	assert.ErrorIs(suite.T(), err, ErrOrderNotFound)
	_, err = suite.service.RemoveItem(suite.otherCtx, detail.Items[0].ID)
	assert.ErrorIs(suite.T(), err, ErrItemNotFound)
	_, err = suite.service.GetActiveOrder(suite.otherCtx, suite.table.ID)
	assert.ErrorIs(suite.T(), err, ErrTableNotFound)
	_, err = suite.tables.Get(suite.otherCtx, suite.table.ID)
	assert.ErrorIs(suite.T(), err, ErrTableNotFound)

	// A foreign product cannot be ordered either.
	foreign := suite.store.addProduct(uuid.New(), "Foreign", 1.00)
	_, err = suite.service.AddItemToOrder(suite.waiterCtx, detail.ID, &models.AddItemInput{ProductID: foreign.ID, Quantity: 1})
	assert.ErrorIs(suite.T(), err, ErrProductNotFound)

	assert.Equal(suite.T(), models.OrderOpen, suite.store.orders[detail.ID].Status)
	assert.Len(suite.T(), suite.store.items, 1)
}

func (suite *OrderServiceTestSuite) TestTrackedStockFollowsOrderLines() {
	coffee := suite.store.products[suite.coffee.ID]
	coffee.StockEnabled = true
	coffee.StockQuantity = 2

	detail := suite.addCoffee(2)
	assert.Equal(suite.T(), 0, suite.store.products[suite.coffee.ID].StockQuantity)
	assert.False(suite.T(), suite.store.products[suite.coffee.ID].IsActive)

	_, err := suite.service.AddItemToOrder(suite.waiterCtx, detail.ID, &models.AddItemInput{ProductID: suite.coffee.ID, Quantity: 1})
	assert.ErrorIs(suite.T(), err, ErrProductInactive)

	_, err = suite.service.UpdateItemQuantity(suite.waiterCtx, detail.Items[0].ID, 1)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, suite.store.products[suite.coffee.ID].StockQuantity)
	assert.True(suite.T(), suite.store.products[suite.coffee.ID].IsActive)
}

func (suite *OrderServiceTestSuite) TestInsufficientStockLeavesTableUntouched() {
	coffee := suite.store.products[suite.coffee.ID]
	coffee.StockEnabled = true
	coffee.StockQuantity = 1

	_, err := suite.service.AddItem(suite.waiterCtx, suite.table.ID, &models.AddItemInput{ProductID: suite.coffee.ID, Quantity: 2})
	assert.ErrorIs(suite.T(), err, ErrInsufficientStock)

	assert.Empty(suite.T(), suite.store.orders)
	assert.Empty(suite.T(), suite.store.items)
	assert.Equal(suite.T(), models.TableEmpty, suite.store.tables[suite.table.ID].Status)
	assert.Equal(suite.T(), 1, suite.store.products[suite.coffee.ID].StockQuantity)
}

func (suite *OrderServiceTestSuite) TestAddItemValidation() {
	cases := []struct {
		name  string
		input models.AddItemInput
		field string
	}{
		{"missing product", models.AddItemInput{Quantity: 1}, "product_id"},
		{"zero quantity", models.AddItemInput{ProductID: suite.coffee.ID}, "quantity"},
		{"huge quantity", models.AddItemInput{ProductID: suite.coffee.ID, Quantity: maxItemQuantity + 1}, "quantity"},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			input := tc.input
			_, err := suite.service.AddItem(suite.waiterCtx, suite.table.ID, &input)
			var verr *ValidationError
			require.ErrorAs(suite.T(), err, &verr)
			assert.Equal(suite.T(), tc.field, verr.Field)
		})
	}
	assert.Empty(suite.T(), suite.store.orders)
}

func (suite *OrderServiceTestSuite) TestListOrdersFiltersByStatus() {
	other := suite.store.addTable(suite.tenantID, 4)
	paid := suite.addCoffee(1)
	_, err := suite.service.Pay(suite.adminCtx, paid.ID, models.PaymentCash)
	require.NoError(suite.T(), err)
	_, err = suite.service.AddItem(suite.waiterCtx, other.ID, &models.AddItemInput{ProductID: suite.tea.ID, Quantity: 1})
	require.NoError(suite.T(), err)

	status := models.OrderPaid
	orders, err := suite.service.ListOrders(suite.adminCtx, &models.OrderFilter{Status: &status})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), orders, 1)
	assert.Equal(suite.T(), paid.ID, orders[0].ID)

	all, err := suite.service.ListOrders(suite.adminCtx, nil)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), all, 2)

	bad := models.OrderStatus("cooking")
	_, err = suite.service.ListOrders(suite.adminCtx, &models.OrderFilter{Status: &bad})
	var verr *ValidationError
	assert.ErrorAs(suite.T(), err, &verr)

	_, err = suite.service.ListOrders(suite.waiterCtx, nil)
	assert.ErrorIs(suite.T(), err, access.ErrForbidden)
}

func (suite *OrderServiceTestSuite) TestOrderNumbersArePerTenant() {
	second := suite.store.addTable(suite.tenantID, 4)
	a := suite.addCoffee(1)
	b, err := suite.service.AddItem(suite.waiterCtx, second.ID, &models.AddItemInput{ProductID: suite.tea.ID, Quantity: 1})
	require.NoError(suite.T(), err)

	otherTenant := uuid.New()
	otherTable := suite.store.addTable(otherTenant, 1)
	otherProduct := suite.store.addProduct(otherTenant, "Water", 1.00)
	c, err := suite.service.AddItem(principalCtx(otherTenant, models.RoleWaiter), otherTable.ID,
		&models.AddItemInput{ProductID: otherProduct.ID, Quantity: 1})
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), 1, a.OrderNumber)
	assert.Equal(suite.T(), 2, b.OrderNumber)
	assert.Equal(suite.T(), 1, c.OrderNumber)
}

func (suite *OrderServiceTestSuite) TestUnauthenticatedCallsAreRejected() {
	_, err := suite.service.AddItem(context.Background(), suite.table.ID, &models.AddItemInput{ProductID: suite.coffee.ID, Quantity: 1})
	assert.ErrorIs(suite.T(), err, access.ErrUnauthenticated)
}
