package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const subscriberBufferSize = 64

// Gauge tracks the number of live subscriptions.
type Gauge interface {
	SubscriberAdded()
	SubscriberRemoved()
}

type noopGauge struct{}

func (noopGauge) SubscriberAdded()   {}
func (noopGauge) SubscriberRemoved() {}

// Hub fans events out to the subscribers of each tenant within one process.
// Delivery never blocks: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[uuid.UUID]chan Event // tenantID -> subID -> ch
	closed      bool
	gauge       Gauge
	logger      *zap.Logger
}

func NewHub(gauge Gauge, logger *zap.Logger) *Hub {
	if gauge == nil {
		gauge = noopGauge{}
	}
	return &Hub{
		subscribers: make(map[uuid.UUID]map[uuid.UUID]chan Event),
		gauge:       gauge,
		logger:      logger.With(zap.String("component", "realtime_hub")),
	}
}

// Subscribe registers for the tenant's events. The channel is closed once ctx
// is done or the hub is closed.
func (h *Hub) Subscribe(ctx context.Context, tenantID uuid.UUID) <-chan Event {
	subID := uuid.New()
	ch := make(chan Event, subscriberBufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	if _, ok := h.subscribers[tenantID]; !ok {
		h.subscribers[tenantID] = make(map[uuid.UUID]chan Event)
	}
	h.subscribers[tenantID][subID] = ch
	h.mu.Unlock()
	h.gauge.SubscriberAdded()

	go func() {
		<-ctx.Done()
		h.unsubscribe(tenantID, subID)
	}()

	return ch
}

// Broadcast delivers event to the tenant's local subscribers.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers[event.TenantID] {
		select {
		case ch <- event:
		default:
			h.logger.Debug("dropped event for slow subscriber",
				zap.String("tenant_id", event.TenantID.String()),
				zap.String("entity", string(event.Entity)))
		}
	}
}

// Publish broadcasts locally. It satisfies Publisher for single-instance setups.
func (h *Hub) Publish(_ context.Context, event Event) error {
	h.Broadcast(event)
	return nil
}

// Subscribers returns the number of live subscriptions of a tenant.
func (h *Hub) Subscribers(tenantID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[tenantID])
}

func (h *Hub) unsubscribe(tenantID, subID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[tenantID]
	if !ok {
		return
	}
	ch, ok := subs[subID]
	if !ok {
		return
	}
	delete(subs, subID)
	close(ch)
	if len(subs) == 0 {
		delete(h.subscribers, tenantID)
	}
	h.gauge.SubscriberRemoved()
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for tenantID, subs := range h.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
			h.gauge.SubscriberRemoved()
		}
		delete(h.subscribers, tenantID)
	}
	h.closed = true
}
