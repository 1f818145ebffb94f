package indexing

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/recruitflow/talent-search/internal/analytics"
	"github.com/recruitflow/talent-search/internal/embedding"
	"github.com/recruitflow/talent-search/internal/store"
	"github.com/recruitflow/talent-search/internal/vectorstore"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
	"github.com/recruitflow/talent-search/pkg/metrics"
)

// EventStore is the queue and document access the processor needs.
type EventStore interface {
	EventByID(ctx context.Context, id int64) (*store.IndexingEvent, error)
	MarkProcessing(ctx context.Context, id int64) error
	MarkCompleted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, message string) error
	DocumentText(ctx context.Context, docType string, sourceID int64) (string, error)
	CandidateMetadataByID(ctx context.Context, candidateID int64) (store.CandidateMetadata, error)
}

// VectorWriter is the vector store surface the processor writes through.
type VectorWriter interface {
	Upsert(ctx context.Context, points []vectorstore.Point) error
	DeleteByDocument(ctx context.Context, docType string, sourceID int64) error
}

// Processor executes one indexing event end to end.
type Processor struct {
	store       EventStore
	vectors     VectorWriter
	dense       embedding.DenseProvider
	sparse      embedding.SparseProvider
	chunker     *Chunker
	concurrency int
	collector   *analytics.Collector
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewProcessor creates a Processor. Collector may be nil.
func NewProcessor(es EventStore, vectors VectorWriter, dense embedding.DenseProvider, sparse embedding.SparseProvider, chunker *Chunker, concurrency int, collector *analytics.Collector, m *metrics.Metrics) *Processor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		store:       es,
		vectors:     vectors,
		dense:       dense,
		sparse:      sparse,
		chunker:     chunker,
		concurrency: concurrency,
		collector:   collector,
		metrics:     m,
		logger:      slog.Default().With("component", "indexing-processor"),
	}
}

// Process loads the event, runs it, and records the terminal status. The
// processing error is returned to the caller so message redelivery (not the
// queue row) drives retries.
func (p *Processor) Process(ctx context.Context, eventID int64) error {
	event, err := p.store.EventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if err := p.store.MarkProcessing(ctx, event.ID); err != nil {
		return err
	}

	start := time.Now()
	chunks, runErr := p.run(ctx, event)
	elapsed := time.Since(start)

	if runErr != nil {
		markCtx, cancel := terminalContext(ctx)
		defer cancel()
		if markErr := p.store.MarkFailed(markCtx, event.ID, runErr.Error()); markErr != nil {
			p.logger.Error("marking event failed", "event_id", event.ID, "error", markErr)
		}
		p.finish(event, store.EventStatusFailed, chunks, elapsed)
		p.logger.Error("event processing failed",
			"event_id", event.ID,
			"event_type", event.EventType,
			"doc_type", event.DocType,
			"source_id", event.SourceID,
			"error", runErr)
		return runErr
	}

	markCtx, cancel := terminalContext(ctx)
	defer cancel()
	if err := p.store.MarkCompleted(markCtx, event.ID); err != nil {
		return err
	}
	p.finish(event, store.EventStatusCompleted, chunks, elapsed)
	p.logger.Info("event processed",
		"event_id", event.ID,
		"event_type", event.EventType,
		"doc_type", event.DocType,
		"source_id", event.SourceID,
		"chunks", chunks,
		"duration_ms", elapsed.Milliseconds())
	return nil
}

// terminalContext detaches a status update from the processing context so a
// run that timed out or was cancelled can still record its terminal state.
func terminalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}

func (p *Processor) run(ctx context.Context, event *store.IndexingEvent) (int, error) {
	switch event.EventType {
	case store.EventTypeDelete:
		if err := p.vectors.DeleteByDocument(ctx, event.DocType, event.SourceID); err != nil {
			return 0, err
		}
		return 0, nil
	case store.EventTypeUpsert:
		return p.upsert(ctx, event)
	default:
		return 0, apperrors.Newf(apperrors.ErrInvalidInput, 400, "unknown event_type %q", event.EventType)
	}
}

func (p *Processor) upsert(ctx context.Context, event *store.IndexingEvent) (int, error) {
	text, err := p.store.DocumentText(ctx, event.DocType, event.SourceID)
	if err != nil {
		return 0, err
	}
	if text == "" {
		return 0, apperrors.Newf(apperrors.ErrTextMissing, 400,
			"no text for %s %d", event.DocType, event.SourceID)
	}

	meta, err := p.store.CandidateMetadataByID(ctx, event.CandidateID)
	if err != nil {
		return 0, err
	}

	chunks := p.chunker.Chunk(text)
	points := make([]vectorstore.Point, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			dense, err := p.dense.Embed(gctx, chunk, embedding.InputDocument)
			if err != nil {
				return err
			}
			sparse, err := p.sparse.Embed(gctx, chunk)
			if err != nil {
				return err
			}
			points[i] = vectorstore.Point{
				ID:     pointID(event.DocType, event.SourceID, i),
				Dense:  dense,
				Sparse: sparse,
				Payload: vectorstore.DocPayload{
					DocType:              event.DocType,
					SourceID:             event.SourceID,
					CandidateID:          event.CandidateID,
					ApplicationID:        event.ApplicationID,
					JobID:                event.JobID,
					EmbeddedText:         chunk,
					ChunkIndex:           i,
					ChunkCount:           len(chunks),
					Skills:               meta.Skills,
					NoticePeriodDays:     meta.NoticePeriodDays,
					CurrentLocation:      meta.CurrentLocation,
					TotalExperienceYears: meta.TotalExperienceYears,
					ExpectedSalaryLPA:    meta.ExpectedSalaryLPA,
					CanJoinImmediately:   meta.CanJoinImmediately,
					PreferredWorkType:    meta.PreferredWorkType,
					CurrentTitle:         meta.CurrentTitle,
					CurrentCompany:       meta.CurrentCompany,
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := p.vectors.Upsert(ctx, points); err != nil {
		return 0, err
	}
	p.metrics.ChunksUpsertedTotal.Add(float64(len(points)))
	return len(points), nil
}

func (p *Processor) finish(event *store.IndexingEvent, status string, chunks int, elapsed time.Duration) {
	p.metrics.EventsProcessedTotal.WithLabelValues(event.EventType, status).Inc()
	if p.collector == nil {
		return
	}
	p.collector.Track(analytics.IndexingProcessedEvent{
		Type:        analytics.EventIndexProcessed,
		EventID:     event.ID,
		EventKind:   event.EventType,
		DocType:     event.DocType,
		SourceID:    event.SourceID,
		CandidateID: event.CandidateID,
		Status:      status,
		Chunks:      chunks,
		LatencyMs:   elapsed.Milliseconds(),
		Timestamp:   time.Now().UTC(),
	})
}
