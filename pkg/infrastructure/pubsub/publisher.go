package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/cloudevents/sdk-go/v2/event"
)

// PubSubAdapter publishes CloudEvents to Google Cloud Pub/Sub in binary
// content mode: the event data is the message body and the context
// attributes travel as ce-* message attributes.
type PubSubAdapter struct {
	Client *pubsub.Client
}

func (a *PubSubAdapter) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	msg, err := toMessage(e)
	if err != nil {
		return "", err
	}
	topic := a.Client.Topic(topicID)
	res := topic.Publish(ctx, msg)
	return res.Get(ctx)
}

func (a *PubSubAdapter) Close() error {
	return a.Client.Close()
}

func toMessage(e event.Event) (*pubsub.Message, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cloud event: %w", err)
	}

	attrs := map[string]string{
		"ce-specversion": e.SpecVersion(),
		"ce-id":          e.ID(),
		"ce-type":        e.Type(),
		"ce-source":      e.Source(),
	}
	if s := e.Subject(); s != "" {
		attrs["ce-subject"] = s
	}
	if t := e.Time(); !t.IsZero() {
		attrs["ce-time"] = t.Format("2006-01-02T15:04:05.999999999Z07:00")
	}
	if ct := e.DataContentType(); ct != "" {
		attrs["content-type"] = ct
	}
	return &pubsub.Message{Data: e.Data(), Attributes: attrs}, nil
}

// LogPublisher stands in for Pub/Sub when publishing is disabled.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("[LogPublisher] MOCK PUBLISH", "topic", topicID, "type", e.Type(), "id", e.ID(), "data", string(e.Data()))
	return "mock-msg-id", nil
}
