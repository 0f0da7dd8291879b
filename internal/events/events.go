// Package events encodes loan events and moves them through the message
// broker.
package events

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/librarian/apiserver/internal/mq"
	"github.com/librarian/apiserver/types"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigFastest

const (
	contentTypeJSON = "application/json"
	attrEventType   = "event-type"
)

// Publisher sends loan events to one broker channel. Events are ordered
// per book.
type Publisher struct {
	backend mq.Backend
	channel string
}

func NewPublisher(backend mq.Backend, channel string) *Publisher {
	return &Publisher{backend: backend, channel: channel}
}

func (p *Publisher) PublishLoanEvent(ctx context.Context, event types.LoanEvent) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}
	_, err = p.backend.Publish(ctx, p.channel, data, map[string]string{
		mq.AttrContentType: contentTypeJSON,
		mq.AttrOrderingKey: event.BookID,
		attrEventType:      string(event.Type),
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Nop discards every event.
type Nop struct{}

func (Nop) PublishLoanEvent(context.Context, types.LoanEvent) error { return nil }

// Encode serializes event as JSON.
func Encode(event types.LoanEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Decode parses a JSON loan event.
func Decode(data []byte) (types.LoanEvent, error) {
	var event types.LoanEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return types.LoanEvent{}, fmt.Errorf("decode loan event: %w", err)
	}
	if event.Type == "" || event.LoanID == "" {
		return types.LoanEvent{}, fmt.Errorf("decode loan event: missing type or loan id")
	}
	return event, nil
}

// Tail subscribes to channel and passes every decoded event to fn until
// ctx is done. Undecodable messages are logged and dropped.
func Tail(ctx context.Context, backend mq.Backend, channel string, logger *zap.Logger, fn func(types.LoanEvent)) error {
	return backend.Subscribe(ctx, channel, func(ctx context.Context, msg mq.Message) error {
		event, err := Decode(msg.Data)
		if err != nil {
			logger.Warn("dropping malformed loan event", zap.String("message_id", msg.ID), zap.Error(err))
			return err
		}
		fn(event)
		return nil
	})
}
