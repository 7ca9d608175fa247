package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Notifier pushes trip status changes to whoever is watching the trip.
type Notifier interface {
	Publish(ctx context.Context, event types.TripEvent) error
}

// Publisher is the subset of the redis client used for pushes.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

var _ Notifier = (*RedisNotifier)(nil)

// RedisNotifier publishes JSON events on a redis pub/sub channel.
type RedisNotifier struct {
	client  Publisher
	channel string
	logger  *slog.Logger
}

func NewRedisNotifier(client Publisher, channel string, logger *slog.Logger) *RedisNotifier {
	if channel == "" {
		channel = "trip_events"
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

func (n *RedisNotifier) Publish(ctx context.Context, event types.TripEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal trip event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		n.logger.WarnContext(ctx, "Failed to publish trip event",
			slog.String("tripID", event.TripID.String()), slog.Any("error", err))
		return fmt.Errorf("failed to publish trip event: %w", err)
	}
	return nil
}

var _ Notifier = (*LogNotifier)(nil)

// LogNotifier only logs events. Used when no redis is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(ctx context.Context, event types.TripEvent) error {
	n.logger.InfoContext(ctx, "Trip event",
		slog.String("tripID", event.TripID.String()),
		slog.String("status", string(event.Status)),
		slog.Int("progress", event.Progress))
	return nil
}
