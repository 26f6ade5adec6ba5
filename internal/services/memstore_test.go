package services

import (
	"context"
	"sort"
	"time"

	"tabletop/internal/models"
	"tabletop/internal/repositories"

	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the order-taking tables. WithinTx
// restores a snapshot when the callback fails, like a rolled back transaction.
type memStore struct {
	orderSeq map[uuid.UUID]int
	tables   map[uuid.UUID]*models.Table
	products map[uuid.UUID]*models.Product
	orders   map[uuid.UUID]*models.Order
	items    []*models.OrderItem
	clock    func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		orderSeq: map[uuid.UUID]int{},
		tables:   map[uuid.UUID]*models.Table{},
		products: map[uuid.UUID]*models.Product{},
		orders:   map[uuid.UUID]*models.Order{},
		clock:    time.Now,
	}
}

func (s *memStore) snapshot() *memStore {
	c := newMemStore()
	c.clock = s.clock
	for k, v := range s.orderSeq {
		c.orderSeq[k] = v
	}
	for k, v := range s.tables {
		t := *v
		c.tables[k] = &t
	}
	for k, v := range s.products {
		p := *v
		c.products[k] = &p
	}
	for k, v := range s.orders {
		o := *v
		c.orders[k] = &o
	}
	for _, v := range s.items {
		i := *v
		c.items = append(c.items, &i)
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	s.orderSeq, s.tables, s.products, s.orders, s.items = from.orderSeq, from.tables, from.products, from.orders, from.items
}

func (s *memStore) WithinTx(ctx context.Context, fn func(q repositories.DBTX) error) error {
	before := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(before)
		return err
	}
	return nil
}

func (s *memStore) addTable(tenantID uuid.UUID, number int) *models.Table {
	t := &models.Table{ID: uuid.New(), TenantID: tenantID, TableNumber: number, Status: models.TableEmpty}
	s.tables[t.ID] = t
	return t
}

func (s *memStore) addProduct(tenantID uuid.UUID, name string, price float64) *models.Product {
	p := &models.Product{ID: uuid.New(), TenantID: tenantID, Name: name, Price: price, IsActive: true}
	s.products[p.ID] = p
	return p
}

func (s *memStore) activeOrder(tableID uuid.UUID) *models.Order {
	for _, o := range s.orders {
		if o.TableID == tableID && o.Status != models.OrderPaid {
			return o
		}
	}
	return nil
}

type memOrders struct{ s *memStore }

func (r memOrders) WithTx(q repositories.DBTX) repositories.OrderRepository { return r }

func (r memOrders) NextOrderNumber(ctx context.Context, tenantID uuid.UUID) (int, error) {
	r.s.orderSeq[tenantID]++
	return r.s.orderSeq[tenantID], nil
}

func (r memOrders) Create(ctx context.Context, order *models.Order) error {
	if r.s.activeOrder(order.TableID) != nil {
		return &repositories.ConstraintError{Code: "23505", Constraint: repositories.ConstraintActiveOrder}
	}
	order.CreatedAt = r.s.clock()
	order.UpdatedAt = order.CreatedAt
	o := *order
	r.s.orders[o.ID] = &o
	return nil
}

func (r memOrders) get(tenantID, id uuid.UUID) (*models.Order, error) {
	o, ok := r.s.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (r memOrders) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error) {
	return r.get(tenantID, id)
}

func (r memOrders) GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error) {
	return r.get(tenantID, id)
}

func (r memOrders) GetActiveByTable(ctx context.Context, tenantID, tableID uuid.UUID, forUpdate bool) (*models.Order, error) {
	o := r.s.activeOrder(tableID)
	if o == nil || o.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	c := *o
	return &c, nil
}

func (r memOrders) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range r.s.orders {
		if o.TenantID == tenantID && o.Status != models.OrderPaid {
			c := *o
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memOrders) List(ctx context.Context, tenantID uuid.UUID, filter *models.OrderFilter) ([]*models.OrderSummary, error) {
	var out []*models.OrderSummary
	for _, o := range r.s.orders {
		if o.TenantID != tenantID {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.TableID != nil && o.TableID != *filter.TableID {
			continue
		}
		out = append(out, &models.OrderSummary{Order: *o, TableNumber: r.s.tables[o.TableID].TableNumber})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber > out[j].OrderNumber })
	return out, nil
}

func (r memOrders) RecomputeTotal(ctx context.Context, tenantID, id uuid.UUID) (float64, error) {
	o, ok := r.s.orders[id]
	if !ok || o.TenantID != tenantID {
		return 0, repositories.ErrNotFound
	}
	var lines []*models.OrderItem
	for _, i := range r.s.items {
		if i.OrderID == id {
			lines = append(lines, i)
		}
	}
	o.TotalPrice = models.SumItems(lines)
	return o.TotalPrice, nil
}

func (r memOrders) MarkSent(ctx context.Context, tenantID, id uuid.UUID) error {
	o, ok := r.s.orders[id]
	if !ok || o.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	o.Status = models.OrderSent
	return nil
}

func (r memOrders) MarkPaid(ctx context.Context, tenantID, id uuid.UUID, method models.PaymentMethod) (time.Time, error) {
	o, ok := r.s.orders[id]
	if !ok || o.TenantID != tenantID || o.Status == models.OrderPaid {
		return time.Time{}, repositories.ErrNotFound
	}
	now := r.s.clock()
	o.Status = models.OrderPaid
	o.PaidAt = &now
	o.PaymentMethod = &method
	return now, nil
}

func (r memOrders) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	o, ok := r.s.orders[id]
	if !ok || o.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	delete(r.s.orders, id)
	return nil
}

func (r memOrders) PaidTotalSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (float64, int, error) {
	var (
		total float64
		count int
	)
	for _, o := range r.s.orders {
		if o.TenantID == tenantID && o.Status == models.OrderPaid && !o.PaidAt.Before(since) {
			total += o.TotalPrice
			count++
		}
	}
	return models.RoundMoney(total), count, nil
}

type memItems struct{ s *memStore }

func (r memItems) WithTx(q repositories.DBTX) repositories.OrderItemRepository { return r }

func (r memItems) Create(ctx context.Context, item *models.OrderItem) error {
	item.CreatedAt = r.s.clock()
	i := *item
	r.s.items = append(r.s.items, &i)
	return nil
}

func (r memItems) find(tenantID, id uuid.UUID) (int, *models.OrderItem) {
	for n, i := range r.s.items {
		if i.ID == id && i.TenantID == tenantID {
			return n, i
		}
	}
	return -1, nil
}

func (r memItems) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.OrderItem, error) {
	_, i := r.find(tenantID, id)
	if i == nil {
		return nil, repositories.ErrNotFound
	}
	c := *i
	return &c, nil
}

func (r memItems) ListByOrder(ctx context.Context, tenantID, orderID uuid.UUID) ([]*models.OrderItem, error) {
	return r.ListByOrders(ctx, tenantID, []uuid.UUID{orderID})
}

func (r memItems) ListByOrders(ctx context.Context, tenantID uuid.UUID, orderIDs []uuid.UUID) ([]*models.OrderItem, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range orderIDs {
		want[id] = true
	}
	var out []*models.OrderItem
	for _, i := range r.s.items {
		if i.TenantID == tenantID && want[i.OrderID] {
			c := *i
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memItems) UpdateQuantity(ctx context.Context, tenantID, id uuid.UUID, quantity int) error {
	_, i := r.find(tenantID, id)
	if i == nil || i.IsSentToKitchen {
		return repositories.ErrNotFound
	}
	i.Quantity = quantity
	return nil
}

func (r memItems) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	n, i := r.find(tenantID, id)
	if i == nil || i.IsSentToKitchen {
		return repositories.ErrNotFound
	}
	r.s.items = append(r.s.items[:n:n], r.s.items[n+1:]...)
	return nil
}

func (r memItems) MarkSentToKitchen(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error) {
	var changed int64
	now := r.s.clock()
	for _, i := range r.s.items {
		if i.TenantID == tenantID && i.OrderID == orderID && !i.IsSentToKitchen {
			i.IsSentToKitchen = true
			i.SentAt = &now
			changed++
		}
	}
	return changed, nil
}

func (r memItems) Count(ctx context.Context, tenantID, orderID uuid.UUID) (int, int, error) {
	var total, sent int
	for _, i := range r.s.items {
		if i.TenantID == tenantID && i.OrderID == orderID {
			total++
			if i.IsSentToKitchen {
				sent++
			}
		}
	}
	return total, sent, nil
}

type memProducts struct{ s *memStore }

func (r memProducts) WithTx(q repositories.DBTX) repositories.ProductRepository { return r }

func (r memProducts) Create(ctx context.Context, product *models.Product) error {
	p := *product
	r.s.products[p.ID] = &p
	return nil
}

func (r memProducts) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	p, ok := r.s.products[id]
	if !ok || p.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r memProducts) GetForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Product, error) {
	return r.GetByID(ctx, tenantID, id)
}

func (r memProducts) List(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range r.s.products {
		if p.TenantID == tenantID && (!activeOnly || p.IsActive) {
			c := *p
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memProducts) Update(ctx context.Context, product *models.Product) error {
	existing, ok := r.s.products[product.ID]
	if !ok || existing.TenantID != product.TenantID {
		return repositories.ErrNotFound
	}
	p := *product
	r.s.products[p.ID] = &p
	return nil
}

func (r memProducts) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	p, ok := r.s.products[id]
	if !ok || p.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	for _, i := range r.s.items {
		if i.ProductID == id {
			return &repositories.ConstraintError{Code: "23503", Constraint: repositories.ConstraintOrderItemsProduct}
		}
	}
	delete(r.s.products, id)
	return nil
}

func (r memProducts) ListLowStock(ctx context.Context, threshold int) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range r.s.products {
		if p.StockEnabled && p.StockQuantity < threshold {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

type memTables struct{ s *memStore }

func (r memTables) WithTx(q repositories.DBTX) repositories.TableRepository { return r }

func (r memTables) Create(ctx context.Context, table *models.Table) error {
	for _, t := range r.s.tables {
		if t.TenantID == table.TenantID && t.TableNumber == table.TableNumber {
			return &repositories.ConstraintError{Code: "23505", Constraint: repositories.ConstraintTableNumber}
		}
	}
	t := *table
	r.s.tables[t.ID] = &t
	return nil
}

func (r memTables) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Table, error) {
	t, ok := r.s.tables[id]
	if !ok || t.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r memTables) view(t *models.Table) *models.TableView {
	v := &models.TableView{Table: *t}
	if o := r.s.activeOrder(t.ID); o != nil {
		id := o.ID
		v.Occupied = true
		v.ActiveOrderID = &id
	}
	return v
}

func (r memTables) GetView(ctx context.Context, tenantID, id uuid.UUID) (*models.TableView, error) {
	t, ok := r.s.tables[id]
	if !ok || t.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	return r.view(t), nil
}

func (r memTables) ListViews(ctx context.Context, tenantID uuid.UUID) ([]*models.TableView, error) {
	var out []*models.TableView
	for _, t := range r.s.tables {
		if t.TenantID == tenantID {
			out = append(out, r.view(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableNumber < out[j].TableNumber })
	return out, nil
}

func (r memTables) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	t, ok := r.s.tables[id]
	if !ok || t.TenantID != tenantID || r.s.activeOrder(id) != nil {
		return repositories.ErrNotFound
	}
	for _, o := range r.s.orders {
		if o.TableID == id {
			return &repositories.ConstraintError{Code: "23503", Constraint: repositories.ConstraintOrdersTable}
		}
	}
	delete(r.s.tables, id)
	return nil
}

func (r memTables) RefreshStatus(ctx context.Context, tenantID, id uuid.UUID) (models.TableStatus, error) {
	t, ok := r.s.tables[id]
	if !ok || t.TenantID != tenantID {
		return "", repositories.ErrNotFound
	}
	t.Status = models.TableEmpty
	if r.s.activeOrder(id) != nil {
		t.Status = models.TableOccupied
	}
	return t.Status, nil
}

func (r memTables) ReconcileStatuses(ctx context.Context) (int64, error) {
	var fixed int64
	for _, t := range r.s.tables {
		before := t.Status
		if _, err := r.RefreshStatus(ctx, t.TenantID, t.ID); err != nil {
			return fixed, err
		}
		if t.Status != before {
			fixed++
		}
	}
	return fixed, nil
}
