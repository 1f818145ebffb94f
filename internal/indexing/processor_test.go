package indexing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recruitflow/talent-search/internal/embedding"
	"github.com/recruitflow/talent-search/internal/store"
	"github.com/recruitflow/talent-search/internal/vectorstore"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
	"github.com/recruitflow/talent-search/pkg/metrics"
)

// registered once; the prometheus default registry rejects duplicates
var testMetrics = metrics.New()

type fakeEventStore struct {
	event            *store.IndexingEvent
	text             string
	meta             store.CandidateMetadata
	markedProcessing bool
	markedCompleted  bool
	failedMessage    string
}

func (f *fakeEventStore) EventByID(context.Context, int64) (*store.IndexingEvent, error) {
	return f.event, nil
}

func (f *fakeEventStore) MarkProcessing(context.Context, int64) error {
	f.markedProcessing = true
	return nil
}

func (f *fakeEventStore) MarkCompleted(context.Context, int64) error {
	f.markedCompleted = true
	return nil
}

func (f *fakeEventStore) MarkFailed(_ context.Context, _ int64, message string) error {
	f.failedMessage = message
	return nil
}

func (f *fakeEventStore) DocumentText(context.Context, string, int64) (string, error) {
	return f.text, nil
}

func (f *fakeEventStore) CandidateMetadataByID(context.Context, int64) (store.CandidateMetadata, error) {
	return f.meta, nil
}

type fakeVectorWriter struct {
	points      []vectorstore.Point
	upsertErr   error
	deletedType string
	deletedID   int64
}

func (f *fakeVectorWriter) Upsert(_ context.Context, points []vectorstore.Point) error {
	f.points = points
	return f.upsertErr
}

func (f *fakeVectorWriter) DeleteByDocument(_ context.Context, docType string, sourceID int64) error {
	f.deletedType = docType
	f.deletedID = sourceID
	return nil
}

type fakeDense struct{ err error }

func (f fakeDense) Embed(context.Context, string, embedding.InputType) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type fakeSparse struct{}

func (fakeSparse) Embed(context.Context, string) (vectorstore.SparseVector, error) {
	return vectorstore.SparseVector{Indices: []uint32{3}, Values: []float32{1}}, nil
}

func upsertEvent() *store.IndexingEvent {
	return &store.IndexingEvent{
		ID:          5,
		EventType:   store.EventTypeUpsert,
		DocType:     store.DocTypeResume,
		SourceID:    42,
		CandidateID: 7,
	}
}

func TestProcessUpsert(t *testing.T) {
	chunker := newTestChunker(t, 100, 0.15)
	es := &fakeEventStore{
		event: upsertEvent(),
		text:  "golang engineer, five years of backend work",
		meta: store.CandidateMetadata{
			Skills:          []string{"Go"},
			CurrentLocation: "Bangalore",
		},
	}
	vw := &fakeVectorWriter{}
	p := NewProcessor(es, vw, fakeDense{}, fakeSparse{}, chunker, 2, nil, testMetrics)

	if err := p.Process(context.Background(), 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !es.markedProcessing || !es.markedCompleted {
		t.Error("event must pass through processing to completed")
	}
	if len(vw.points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(vw.points))
	}
	point := vw.points[0]
	if point.ID != pointID(store.DocTypeResume, 42, 0) {
		t.Errorf("unexpected point id %s", point.ID)
	}
	if point.Payload.CandidateID != 7 || point.Payload.ChunkCount != 1 {
		t.Errorf("unexpected payload: %+v", point.Payload)
	}
	if point.Payload.CurrentLocation != "Bangalore" {
		t.Error("candidate metadata must be denormalized into the payload")
	}
	if len(point.Dense) == 0 || len(point.Sparse.Indices) == 0 {
		t.Error("both vector kinds must be present")
	}
}

func TestProcessMissingTextFails(t *testing.T) {
	chunker := newTestChunker(t, 100, 0.15)
	es := &fakeEventStore{event: upsertEvent(), text: ""}
	p := NewProcessor(es, &fakeVectorWriter{}, fakeDense{}, fakeSparse{}, chunker, 2, nil, testMetrics)

	err := p.Process(context.Background(), 5)
	if !errors.Is(err, apperrors.ErrTextMissing) {
		t.Fatalf("expected text missing error, got %v", err)
	}
	if es.markedCompleted {
		t.Error("event must not complete without text")
	}
	if es.failedMessage == "" {
		t.Error("failure reason must be recorded on the queue row")
	}
}

func TestProcessDelete(t *testing.T) {
	chunker := newTestChunker(t, 100, 0.15)
	es := &fakeEventStore{event: &store.IndexingEvent{
		ID:        6,
		EventType: store.EventTypeDelete,
		DocType:   store.DocTypeRecruiterComment,
		SourceID:  13,
	}}
	vw := &fakeVectorWriter{}
	p := NewProcessor(es, vw, fakeDense{}, fakeSparse{}, chunker, 2, nil, testMetrics)

	if err := p.Process(context.Background(), 6); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vw.deletedType != store.DocTypeRecruiterComment || vw.deletedID != 13 {
		t.Errorf("unexpected delete target: %s %d", vw.deletedType, vw.deletedID)
	}
	if len(vw.points) != 0 {
		t.Error("delete events must not upsert")
	}
	if !es.markedCompleted {
		t.Error("delete events must complete")
	}
}

// deadlineEventStore behaves like a real database driver: every call fails
// once its context is cancelled or past its deadline.
type deadlineEventStore struct {
	*fakeEventStore
	failed chan struct{}
}

func (s *deadlineEventStore) DocumentText(ctx context.Context, _ string, _ int64) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (s *deadlineEventStore) MarkCompleted(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fakeEventStore.MarkCompleted(ctx, id)
}

func (s *deadlineEventStore) MarkFailed(ctx context.Context, id int64, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.fakeEventStore.failedMessage = message
	close(s.failed)
	return nil
}

func TestProcessTimeoutStillRecordsFailure(t *testing.T) {
	es := &deadlineEventStore{
		fakeEventStore: &fakeEventStore{event: upsertEvent()},
		failed:         make(chan struct{}),
	}
	p := NewProcessor(es, &fakeVectorWriter{}, fakeDense{}, fakeSparse{}, nil, 2, nil, testMetrics)

	handler := MessageHandler(p, 20*time.Millisecond)
	err := handler(context.Background(), nil, []byte(`{"event_id":5}`))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error for redelivery, got %v", err)
	}

	select {
	case <-es.failed:
	case <-time.After(2 * time.Second):
		t.Fatal("failure was never recorded after the processing deadline fired")
	}
	if es.markedCompleted {
		t.Error("event must not complete after a timeout")
	}
	if es.failedMessage == "" {
		t.Error("error_message must survive the expired processing context")
	}
}

func TestProcessEmbeddingFailure(t *testing.T) {
	chunker := newTestChunker(t, 100, 0.15)
	es := &fakeEventStore{event: upsertEvent(), text: "some resume text"}
	p := NewProcessor(es, &fakeVectorWriter{}, fakeDense{err: errors.New("rate limited")}, fakeSparse{}, chunker, 2, nil, testMetrics)

	if err := p.Process(context.Background(), 5); err == nil {
		t.Fatal("embedding failure must be returned for redelivery")
	}
	if es.markedCompleted {
		t.Error("event must not complete after an embedding failure")
	}
	if es.failedMessage == "" {
		t.Error("failure reason must be recorded")
	}
}
