package handlerwrapper

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type pingPayload struct {
	Name string `json:"name"`
}

type pongPayload struct {
	Greeting string `json:"greeting"`
}

func TestWrapTyped(t *testing.T) {
	tracer := noop.NewTracerProvider().Tracer("test")

	tests := []struct {
		name        string
		body        []byte
		handler     HandlerFunc[pingPayload]
		wantErr     bool
		wantTopics  []string
		wantCalled  bool
		wantPayload string
	}{
		{
			name: "publishes results with topic metadata",
			body: []byte(`{"name":"alpha"}`),
			handler: func(ctx context.Context, p *pingPayload) ([]Result, error) {
				return []Result{{Topic: "pong.v1", Payload: pongPayload{Greeting: "hi " + p.Name}}}, nil
			},
			wantCalled:  true,
			wantTopics:  []string{"pong.v1"},
			wantPayload: `{"greeting":"hi alpha"}`,
		},
		{
			name: "undecodable payload is acked without calling handler",
			body: []byte(`{not json`),
			handler: func(ctx context.Context, p *pingPayload) ([]Result, error) {
				t.Fatal("handler must not be called")
				return nil, nil
			},
		},
		{
			name: "handler error is returned",
			body: []byte(`{"name":"beta"}`),
			handler: func(ctx context.Context, p *pingPayload) ([]Result, error) {
				return nil, errors.New("boom")
			},
			wantCalled: true,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := WrapTyped("test.ping", slog.Default(), tracer, func(ctx context.Context, p *pingPayload) ([]Result, error) {
				called = true
				return tt.handler(ctx, p)
			})

			msg := message.NewMessage(watermill.NewUUID(), tt.body)
			middleware.SetCorrelationID("corr-1", msg)

			out, err := h(msg)
			assert.Equal(t, tt.wantCalled, called)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, out, len(tt.wantTopics))
			for i, topic := range tt.wantTopics {
				assert.Equal(t, topic, out[i].Metadata.Get(MetadataTopic))
				assert.Equal(t, "corr-1", middleware.MessageCorrelationID(out[i]))
				assert.JSONEq(t, tt.wantPayload, string(out[i].Payload))
			}
		})
	}
}

type recordingPublisher struct {
	topics []string
}

func (p *recordingPublisher) Publish(topic string, msgs ...*message.Message) error {
	for range msgs {
		p.topics = append(p.topics, topic)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestTopicPublisher(t *testing.T) {
	rec := &recordingPublisher{}
	pub := TopicPublisher{Publisher: rec}

	tagged, err := NewMessage("match.finished.v1", map[string]string{"id": "m1"})
	require.NoError(t, err)
	untagged := message.NewMessage(watermill.NewUUID(), []byte(`{}`))

	require.NoError(t, pub.Publish("fallback", tagged, untagged))
	assert.Equal(t, []string{"match.finished.v1", "fallback"}, rec.topics)

	assert.Error(t, pub.Publish("", message.NewMessage(watermill.NewUUID(), nil)))
}
