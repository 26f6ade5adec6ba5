package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "tabletop:changes:"

// ChannelFor returns the pub/sub channel of a tenant.
func ChannelFor(event Event) string {
	return channelPrefix + event.TenantID.String()
}

// RedisPublisher publishes events on redis so every API instance sees them.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return p.client.Publish(ctx, ChannelFor(event), data).Err()
}

// Bridge forwards redis change notifications of all tenants into a Hub.
type Bridge struct {
	client redis.UniversalClient
	hub    *Hub
	logger *zap.Logger
}

func NewBridge(client redis.UniversalClient, hub *Hub, logger *zap.Logger) *Bridge {
	return &Bridge{client: client, hub: hub, logger: logger.With(zap.String("component", "realtime_bridge"))}
}

// Run blocks until ctx is done or the subscription fails.
func (b *Bridge) Run(ctx context.Context) error {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	// Wait for the subscription confirmation so publish-after-start is not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("subscribe to change notifications: %w", err)
	}
	b.logger.Info("listening for change notifications", zap.String("pattern", channelPrefix+"*"))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("change notification channel closed")
			}
			event, err := decode(msg)
			if err != nil {
				b.logger.Warn("discarding malformed change notification", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			b.hub.Broadcast(event)
		}
	}
}

func decode(msg *redis.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
		return Event{}, err
	}
	if !strings.HasSuffix(msg.Channel, event.TenantID.String()) {
		return Event{}, fmt.Errorf("tenant %s does not match channel", event.TenantID)
	}
	return event, nil
}
