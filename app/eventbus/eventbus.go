// Package eventbus connects the service to NATS JetStream through Watermill.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
)

// Config describes the bus connection.
type Config struct {
	URL string
	// NKeySeed enables nkey authentication when set.
	NKeySeed string
	// Stream is the JetStream stream holding every subject in Subjects.
	Stream   string
	Subjects []string
}

// EventBus is a Watermill publisher and subscriber pair sharing one JetStream stream.
type EventBus interface {
	message.Publisher
	message.Subscriber
}

// NatsEventBus implements EventBus on top of watermill-nats.
type NatsEventBus struct {
	publisher  *nats.Publisher
	subscriber *nats.Subscriber
	conn       *nc.Conn
	logger     *slog.Logger
}

var _ EventBus = (*NatsEventBus)(nil)

// New connects to NATS, makes sure the stream exists and builds the publisher
// and subscriber.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*NatsEventBus, error) {
	if cfg.URL == "" {
		return nil, errors.New("nats url is required")
	}

	options := []nc.Option{
		nc.RetryOnFailedConnect(true),
		nc.Timeout(30 * time.Second),
		nc.ReconnectWait(time.Second),
		nc.MaxReconnects(-1),
	}
	if cfg.NKeySeed != "" {
		opt, err := nkeyOption(cfg.NKeySeed)
		if err != nil {
			return nil, err
		}
		options = append(options, opt)
	}

	conn, err := nc.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if err := ensureStream(ctx, conn, cfg); err != nil {
		conn.Close()
		return nil, err
	}

	wmLogger := watermill.NewSlogLogger(logger)
	jsConfig := nats.JetStreamConfig{
		Disabled:      false,
		AutoProvision: false,
		SubscribeOptions: []nc.SubOpt{
			nc.DeliverAll(),
			nc.AckExplicit(),
		},
		DurablePrefix:     cfg.Stream,
		DurableCalculator: durableName,
	}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:               cfg.URL,
			NatsOptions:       options,
			Marshaler:         &nats.NATSMarshaler{},
			JetStream:         jsConfig,
			SubjectCalculator: nats.DefaultSubjectCalculator,
		},
		wmLogger,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create NATS publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:               cfg.URL,
			CloseTimeout:      30 * time.Second,
			AckWaitTimeout:    30 * time.Second,
			NatsOptions:       options,
			Unmarshaler:       &nats.NATSMarshaler{},
			JetStream:         jsConfig,
			SubjectCalculator: nats.DefaultSubjectCalculator,
		},
		wmLogger,
	)
	if err != nil {
		_ = publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create NATS subscriber: %w", err)
	}

	logger.InfoContext(ctx, "Connected to event bus",
		slog.String("url", cfg.URL),
		slog.String("stream", cfg.Stream),
	)

	return &NatsEventBus{
		publisher:  publisher,
		subscriber: subscriber,
		conn:       conn,
		logger:     logger,
	}, nil
}

func (b *NatsEventBus) Publish(topic string, messages ...*message.Message) error {
	return b.publisher.Publish(topic, messages...)
}

func (b *NatsEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

// Healthy reports whether the underlying connection is up.
func (b *NatsEventBus) Healthy() bool {
	return b.conn != nil && b.conn.IsConnected()
}

// Close shuts down the subscriber first so in-flight messages can finish publishing.
func (b *NatsEventBus) Close() error {
	var errs []error
	if err := b.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("subscriber: %w", err))
	}
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("publisher: %w", err))
	}
	b.conn.Close()
	return errors.Join(errs...)
}

func nkeyOption(seed string) (nc.Option, error) {
	kp, err := nkeys.FromSeed([]byte(seed))
	if err != nil {
		return nil, fmt.Errorf("invalid nkey seed: %w", err)
	}
	pub, err := kp.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("failed to derive nkey public key: %w", err)
	}
	return nc.Nkey(pub, kp.Sign), nil
}

// durableName builds a consumer name that is valid for JetStream, which
// rejects dots in durable names.
func durableName(prefix, topic string) string {
	name := strings.NewReplacer(".", "_", "*", "_", ">", "_").Replace(topic)
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}
