package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"

	"github.com/jobradar/jobradar/internal/radar"
)

// PubSub publishes each new job as one JSON message on a Google Cloud
// Pub/Sub topic, for downstream consumers outside this process.
type PubSub struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSub connects to the project and binds the topic.
func NewPubSub(ctx context.Context, projectID, topicID string) (*PubSub, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &PubSub{client: client, topic: client.Topic(topicID)}, nil
}

// Notify publishes every job and waits for the broker to confirm each
// one. The first publish failure aborts the rest.
func (p *PubSub) Notify(ctx context.Context, jobs []radar.Job) error {
	for _, job := range jobs {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job %q: %w", job.Title, err)
		}
		msg := &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"source": job.Source,
				"score":  strconv.Itoa(job.Score),
			},
		}
		if _, err := p.topic.Publish(ctx, msg).Get(ctx); err != nil {
			return fmt.Errorf("publish job %q: %w", job.Title, err)
		}
	}
	return nil
}

// Close flushes the topic and releases the client connection.
func (p *PubSub) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
