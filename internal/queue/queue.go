// Package queue publishes background classification jobs. The engine
// never blocks a search or enrichment response on classification; it
// fires a job and lets a separate classification worker (out of scope
// here) pick it up.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"cloud.google.com/go/pubsub"
)

// ClassificationJobMessage is the wire payload for a classification
// request. AgentID is the gateway's `chainId:tokenId` identifier.
type ClassificationJobMessage struct {
	AgentID     string `json:"agentId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Reason      string `json:"reason"` // "unclassified" | "stale" | "manual"
}

// Publisher enqueues classification jobs. Implementations must never
// let a publish failure propagate as a request-fatal error —
// background classification is always best-effort.
type Publisher interface {
	Enqueue(ctx context.Context, msg ClassificationJobMessage) error
	Close() error
}

// PubSubPublisher publishes classification jobs to a Google Cloud
// Pub/Sub topic.
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubPublisher connects to projectID and resolves topicID. It
// does not create the topic — provisioning is an operational concern,
// not a gateway responsibility.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &PubSubPublisher{client: client, topic: client.Topic(topicID)}, nil
}

// Enqueue publishes msg and blocks until the broker acknowledges it.
// A publish error is always recoverable: the caller should log and
// continue serving the request that triggered classification.
func (p *PubSubPublisher) Enqueue(ctx context.Context, msg ClassificationJobMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"reason": msg.Reason,
		},
	})
	_, err = result.Get(ctx)
	return err
}

// Close stops the topic's publish scheduler and closes the client.
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

// EnqueueBestEffort calls Enqueue and logs on failure instead of
// returning an error, for call sites that must not fail the parent
// request over a queue outage.
func EnqueueBestEffort(ctx context.Context, pub Publisher, msg ClassificationJobMessage) {
	if pub == nil {
		return
	}
	if err := pub.Enqueue(ctx, msg); err != nil {
		slog.Warn("queue: classification enqueue degraded", "agent_id", msg.AgentID, "error", err)
	}
}

// NoopPublisher discards every job. Used when no topic is configured
// (e.g. local development) so callers can unconditionally hold a
// Publisher rather than nil-check everywhere.
type NoopPublisher struct{}

func (NoopPublisher) Enqueue(ctx context.Context, msg ClassificationJobMessage) error { return nil }
func (NoopPublisher) Close() error                                                    { return nil }
