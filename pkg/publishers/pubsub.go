package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubsubTopic is the part of *pubsub.Topic the publisher needs.
type pubsubTopic interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
	Stop()
}

type pubsubPublisher struct {
	id     string
	topic  pubsubTopic
	client io.Closer
	log    Logger
}

func newPubSubPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.PubSub == nil {
		return nil, fmt.Errorf("publisher %q missing pubsub configuration", cfg.ID)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var opts []option.ClientOption
	if cfg.PubSub.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.PubSub.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &pubsubPublisher{
		id:     cfg.ID,
		topic:  client.Topic(cfg.PubSub.Topic),
		client: client,
		log:    ensureLogger(log),
	}, nil
}

func (p *pubsubPublisher) ID() string   { return p.id }
func (p *pubsubPublisher) Type() string { return TypePubSub }

// Close flushes pending messages and releases the client.
func (p *pubsubPublisher) Close() error {
	p.topic.Stop()
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

// Publish sends the event and waits for the server to acknowledge it.
func (p *pubsubPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event_kind": evt.Kind(),
			"source":     evt.Source,
		},
	})
	id, err := result.Get(ctx)
	if err != nil {
		p.log.ErrorObj("pubsub publisher send failed", "publisher_pubsub_error", map[string]any{
			"publisher_id": p.id,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish to pubsub: %w", err)
	}
	p.log.DebugObj("pubsub publisher delivered event", "publisher_pubsub_delivery", map[string]any{
		"publisher_id": p.id,
		"message_id":   id,
	})
	return nil
}
