package realtime

import (
	"context"

	"github.com/google/uuid"
)

type Entity string

const (
	EntityTable     Entity = "table"
	EntityOrder     Entity = "order"
	EntityOrderItem Entity = "order_item"
	EntityProduct   Entity = "product"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event signals that an entity of a tenant changed. It carries no payload;
// subscribers refetch what they display.
type Event struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Entity   Entity    `json:"entity"`
	EntityID uuid.UUID `json:"entity_id"`
	Action   Action    `json:"action"`
}

// Publisher announces committed changes.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Subscriber delivers a tenant's change events until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, tenantID uuid.UUID) <-chan Event
}
