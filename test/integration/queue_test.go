package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/recruitflow/talent-search/internal/store"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
)

// TestEventLifecycle walks one queue row through pending -> processing ->
// failed -> processing -> completed against a real database.
func TestEventLifecycle(t *testing.T) {
	db := skipIfNoPostgres(t)
	s := store.New(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created, err := s.CreateEvent(ctx, store.IndexingEvent{
		EventType:   store.EventTypeUpsert,
		DocType:     "resume",
		SourceID:    900001,
		CandidateID: 900001,
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected generated event id")
	}
	if created.Status != store.EventStatusPending {
		t.Errorf("new event status = %q, want pending", created.Status)
	}

	if err := s.MarkProcessing(ctx, created.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	processing, err := s.EventByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("EventByID while processing: %v", err)
	}
	if processing.ProcessedAt != nil {
		t.Error("processed_at must stay unset until a terminal transition")
	}
	if err := s.MarkFailed(ctx, created.ID, "embedding provider unreachable"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	failed, err := s.EventByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("EventByID after failure: %v", err)
	}
	if failed.Status != store.EventStatusFailed {
		t.Errorf("status = %q, want failed", failed.Status)
	}
	if failed.RetryCount != 1 {
		t.Errorf("retry_count = %d, want 1", failed.RetryCount)
	}
	if failed.ErrorMessage == nil || *failed.ErrorMessage != "embedding provider unreachable" {
		t.Errorf("error_message = %v, want the recorded failure", failed.ErrorMessage)
	}
	if failed.ProcessedAt == nil {
		t.Error("failed events must carry a processed_at timestamp")
	}

	// Redelivery path: the worker reprocesses the same row.
	if err := s.MarkProcessing(ctx, created.ID); err != nil {
		t.Fatalf("MarkProcessing (retry): %v", err)
	}
	if err := s.MarkCompleted(ctx, created.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	done, err := s.EventByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("EventByID after completion: %v", err)
	}
	if done.Status != store.EventStatusCompleted {
		t.Errorf("status = %q, want completed", done.Status)
	}
	if done.ProcessedAt == nil {
		t.Error("expected processed_at to be set")
	}
	if done.RetryCount != 1 {
		t.Errorf("retry_count = %d, want 1 after success", done.RetryCount)
	}
}

func TestEventByIDNotFound(t *testing.T) {
	db := skipIfNoPostgres(t)
	s := store.New(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.EventByID(ctx, -1)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("EventByID(-1) error = %v, want ErrNotFound", err)
	}
}
