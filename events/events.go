// Package events carries editor changes over a watermill pubsub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/meikuraledutech/flow"
)

// Topic is the topic editor changes are published on.
const Topic = "flow.changes"

// NewGoChannel creates an in-memory pubsub. The returned value is both the
// publisher and the subscriber.
func NewGoChannel(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            1000,
			Persistent:                     false,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewSlogLogger(logger),
	)
}

// Publisher implements flow.Notifier on top of a watermill publisher.
type Publisher struct {
	pub   message.Publisher
	topic string
}

// NewPublisher wraps pub.
func NewPublisher(pub message.Publisher) *Publisher {
	return &Publisher{pub: pub, topic: Topic}
}

// Notify publishes c as a JSON message.
func (p *Publisher) Notify(ctx context.Context, c flow.Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("events: marshal change: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("workflow_id", c.WorkflowID)
	msg.Metadata.Set("kind", string(c.Kind))
	msg.SetContext(ctx)

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("events: publish change: %w", err)
	}
	return nil
}

// Handler processes one change.
type Handler func(ctx context.Context, c flow.Change) error

// Consume subscribes to the change topic and calls handle for every change
// until ctx is cancelled. Messages are always acked; undecodable messages
// and handler errors are logged.
func Consume(ctx context.Context, sub message.Subscriber, logger *slog.Logger, handle Handler) error {
	msgs, err := sub.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("events: subscribe: %w", err)
	}

	for msg := range msgs {
		var c flow.Change
		if err := json.Unmarshal(msg.Payload, &c); err != nil {
			logger.ErrorContext(ctx, "Failed to decode change", "message_uuid", msg.UUID, "error", err)
			msg.Ack()
			continue
		}
		if err := handle(msg.Context(), c); err != nil {
			logger.ErrorContext(ctx, "Failed to handle change", "workflow_id", c.WorkflowID, "kind", c.Kind, "error", err)
		}
		msg.Ack()
	}
	return nil
}
