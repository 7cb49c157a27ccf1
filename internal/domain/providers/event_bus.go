package providers

import (
	"context"

	"github.com/mednais/sop-marketplace/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to session
// lifecycle events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.SessionEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.SessionEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event scopes
const (
	// EventChannelSessionUpdates is the firehose channel for all session events
	EventChannelSessionUpdates = "sessions:updates"

	// EventChannelUserPrefix is the prefix for per-user channels
	EventChannelUserPrefix = "sessions:user:"
)

// GetUserChannel returns the channel name for one user's session events
func GetUserChannel(userID string) string {
	return EventChannelUserPrefix + userID
}
