package indexing

import (
	"context"
	"fmt"
	"time"

	"github.com/recruitflow/talent-search/pkg/kafka"
	"github.com/recruitflow/talent-search/pkg/resilience"
)

// queueMessage is the Kafka payload pointing at one queue row.
type queueMessage struct {
	EventID int64 `json:"event_id"`
}

// MessageHandler adapts the processor to the Kafka consumer loop. A returned
// error leaves the message uncommitted so the broker redelivers it. Each
// event gets a processing deadline so a hung embedding call cannot stall the
// partition.
func MessageHandler(p *Processor, processTimeout time.Duration) kafka.MessageHandler {
	return func(ctx context.Context, key, value []byte) error {
		msg, err := kafka.DecodeJSON[queueMessage](value)
		if err != nil {
			return fmt.Errorf("decoding indexing message: %w", err)
		}
		return resilience.WithTimeout(ctx, processTimeout, "index-event", func(ctx context.Context) error {
			return p.Process(ctx, msg.EventID)
		})
	}
}
