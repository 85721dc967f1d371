package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (Subscription, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `env:"TYPE"`

	// Channel settings (Community tier)
	ChannelBufferSize int `env:"CHANNEL_BUFFER_SIZE"`

	// NATS settings (Pro tier)
	NATSUrl           string `env:"NATS_URL"`
	NATSToken         string `env:"NATS_TOKEN"`
	NATSMaxReconnects int    `env:"NATS_MAX_RECONNECTS"`
	NATSReconnectWait int    `env:"NATS_RECONNECT_WAIT"` // seconds
}

// TopicEntitiesChanged carries a ChangeEvent after every successful save.
const TopicEntitiesChanged = "storefront.entities.changed"

// ChangeEvent describes one committed unit of work.
type ChangeEvent struct {
	Tables       []string `json:"tables"`
	RowsAffected int      `json:"rowsAffected"`
	Added        int      `json:"added"`
	Modified     int      `json:"modified"`
	Deleted      int      `json:"deleted"`
	CommittedAt  int64    `json:"committedAt"`
}

// Touches reports whether the event changed any of the given tables.
func (e *ChangeEvent) Touches(tables ...string) bool {
	for _, t := range e.Tables {
		for _, want := range tables {
			if t == want {
				return true
			}
		}
	}
	return false
}
