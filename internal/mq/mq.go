package mq

import (
	"context"
	"errors"
	"fmt"

	"github.com/librarian/apiserver/config"
)

// ErrDisabled is returned by New when no broker is configured.
var ErrDisabled = errors.New("message broker is not configured")

// Attribute keys understood by every backend.
const (
	// AttrContentType carries the payload content type.
	AttrContentType = "content-type"
	// AttrOrderingKey groups messages that must be delivered in publish
	// order. Pub/Sub maps it to the native ordering key.
	AttrOrderingKey = "ordering-key"
	// AttrPublishTime is set on delivery when the broker records one.
	AttrPublishTime = "publish-time"
)

// Message is a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Returning an error nacks it.
type Handler func(ctx context.Context, msg Message) error

// Backend is implemented by every broker.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	// Subscribe blocks delivering messages to handler until ctx is done.
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// New connects to the broker selected by cfg.Backend.
func New(ctx context.Context, cfg config.MQConfig) (Backend, error) {
	switch cfg.Backend {
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSub(ctx, cfg.PubSub)
	case "memory":
		return NewMemory(), nil
	case "none", "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}
