// Package handlerwrapper adapts typed handler functions to Watermill message handlers.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/42core-team/arena/app/observability"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MetadataTopic carries the destination topic of an outgoing message.
const MetadataTopic = "topic"

// Result is a message a handler wants published once it returns successfully.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// HandlerFunc is a typed message handler.
type HandlerFunc[T any] func(ctx context.Context, payload *T) ([]Result, error)

// WrapTyped decodes the JSON payload into T, runs the handler and encodes its
// results as outgoing messages. Payloads that cannot be decoded are logged and
// acked since redelivery cannot fix them.
func WrapTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	handler HandlerFunc[T],
) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx, span := tracer.Start(msg.Context(), handlerName, trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
			attribute.String("correlation_id", middleware.MessageCorrelationID(msg)),
		))
		defer span.End()
		ctx = observability.WithCorrelationID(ctx, middleware.MessageCorrelationID(msg))

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.WarnContext(ctx, "Dropping undecodable message",
				slog.String("handler", handlerName),
				slog.String("message_id", msg.UUID),
				slog.Any("error", err),
			)
			span.SetStatus(codes.Error, "undecodable payload")
			return nil, nil
		}

		results, err := handler(ctx, payload)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		out := make([]*message.Message, 0, len(results))
		for _, r := range results {
			m, err := NewMessage(r.Topic, r.Payload)
			if err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("%s: %w", handlerName, err)
			}
			for k, v := range r.Metadata {
				m.Metadata.Set(k, v)
			}
			middleware.SetCorrelationID(middleware.MessageCorrelationID(msg), m)
			out = append(out, m)
		}
		return out, nil
	}
}

// NewMessage encodes payload as JSON and tags it with its destination topic.
func NewMessage(topic string, payload any) (*message.Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", topic, err)
	}
	m := message.NewMessage(watermill.NewUUID(), body)
	m.Metadata.Set(MetadataTopic, topic)
	return m, nil
}

// TopicPublisher routes each message to the topic in its metadata, falling back
// to the topic it was published on. It lets a single router handler fan out to
// several topics.
type TopicPublisher struct {
	message.Publisher
}

func (p TopicPublisher) Publish(topic string, msgs ...*message.Message) error {
	for _, m := range msgs {
		dest := m.Metadata.Get(MetadataTopic)
		if dest == "" {
			dest = topic
		}
		if dest == "" {
			return fmt.Errorf("message %s has no destination topic", m.UUID)
		}
		if err := p.Publisher.Publish(dest, m); err != nil {
			return err
		}
	}
	return nil
}
