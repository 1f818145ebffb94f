package indexing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/recruitflow/talent-search/internal/store"
	"github.com/recruitflow/talent-search/pkg/kafka"
)

// EventCreator persists a new queue row.
type EventCreator interface {
	CreateEvent(ctx context.Context, event store.IndexingEvent) (*store.IndexingEvent, error)
}

// EventPublisher publishes the queue-row pointer to Kafka.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher enqueues indexing events: the durable row first, then the Kafka
// pointer keyed by document identity so chunks of one document stay ordered.
type Publisher struct {
	store    EventCreator
	producer EventPublisher
	logger   *slog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(es EventCreator, producer EventPublisher) *Publisher {
	return &Publisher{
		store:    es,
		producer: producer,
		logger:   slog.Default().With("component", "indexing-publisher"),
	}
}

// Enqueue creates the pending queue row and publishes its id.
func (p *Publisher) Enqueue(ctx context.Context, event store.IndexingEvent) (*store.IndexingEvent, error) {
	created, err := p.store.CreateEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	err = p.producer.Publish(ctx, kafka.Event{
		Key:   fmt.Sprintf("%s:%d", created.DocType, created.SourceID),
		Value: queueMessage{EventID: created.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("publishing indexing event %d: %w", created.ID, err)
	}

	p.logger.Info("indexing event enqueued",
		"event_id", created.ID,
		"event_type", created.EventType,
		"doc_type", created.DocType,
		"source_id", created.SourceID)
	return created, nil
}
