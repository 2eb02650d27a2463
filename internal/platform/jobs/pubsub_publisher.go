// Package jobs publishes asynchronous work and domain events to Pub/Sub.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/shiny-beauty/api/internal/services"
)

// PubSubProgramPublisher publishes program-change events to a Pub/Sub topic.
// Cache warmers and storefront nodes subscribe to drop their snapshots.
type PubSubProgramPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

// NewPubSubProgramPublisher constructs a Pub/Sub backed program event publisher.
func NewPubSubProgramPublisher(topic *pubsub.Topic) (*PubSubProgramPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub program publisher: topic is required")
	}
	return &PubSubProgramPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// PublishProgramChange enqueues a program-change message on the configured topic.
func (p *PubSubProgramPublisher) PublishProgramChange(ctx context.Context, event services.ProgramChangeEvent) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("pubsub program publisher: not initialised")
	}

	data, err := p.marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal program change: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "programId", event.ProgramID)
	setAttr(attrs, "action", event.Action)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish program change: %w", err)
	}
	return id, nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
