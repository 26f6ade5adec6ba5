package services

import (
	"context"

	"tabletop/internal/realtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// notifier publishes change events after commit. Failures only cost dashboard
// freshness, so they are logged and swallowed.
type notifier struct {
	publisher realtime.Publisher
	logger    *zap.Logger
}

func (n notifier) notify(ctx context.Context, tenantID uuid.UUID, entity realtime.Entity, id uuid.UUID, action realtime.Action) {
	if n.publisher == nil {
		return
	}
	event := realtime.Event{TenantID: tenantID, Entity: entity, EntityID: id, Action: action}
	if err := n.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		n.logger.Warn("failed to publish change event",
			zap.String("tenant_id", tenantID.String()),
			zap.String("entity", string(entity)),
			zap.Error(err))
	}
}
