package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/recruitflow/talent-search/pkg/errors"
)

// Indexing event types.
const (
	EventTypeUpsert = "UPSERT"
	EventTypeDelete = "DELETE"
)

// Indexing event statuses. Transitions are pending -> processing ->
// {completed, failed}; completed and failed are terminal.
const (
	EventStatusPending    = "pending"
	EventStatusProcessing = "processing"
	EventStatusCompleted  = "completed"
	EventStatusFailed     = "failed"
)

// IndexingEvent is one row of the indexing_queue table.
type IndexingEvent struct {
	ID            int64      `json:"id"`
	EventType     string     `json:"event_type"`
	DocType       string     `json:"doc_type"`
	SourceID      int64      `json:"source_id"`
	CandidateID   int64      `json:"candidate_id"`
	ApplicationID *int64     `json:"application_id,omitempty"`
	JobID         *int64     `json:"job_id,omitempty"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	ErrorMessage  *string    `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}

// CreateEvent inserts a pending indexing event and returns it with its
// generated id and timestamps.
func (s *Store) CreateEvent(ctx context.Context, event IndexingEvent) (*IndexingEvent, error) {
	err := s.client.DB.QueryRowContext(ctx, `
		INSERT INTO indexing_queue
			(event_type, doc_type, source_id, candidate_id, application_id, job_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		event.EventType,
		event.DocType,
		event.SourceID,
		event.CandidateID,
		event.ApplicationID,
		event.JobID,
		EventStatusPending,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting indexing event: %w", err)
	}
	event.Status = EventStatusPending
	return &event, nil
}

// EventByID fetches a single indexing event.
func (s *Store) EventByID(ctx context.Context, id int64) (*IndexingEvent, error) {
	var (
		event         IndexingEvent
		applicationID sql.NullInt64
		jobID         sql.NullInt64
		errorMessage  sql.NullString
		processedAt   sql.NullTime
	)
	err := s.client.DB.QueryRowContext(ctx, `
		SELECT id, event_type, doc_type, source_id, candidate_id, application_id,
		       job_id, status, retry_count, error_message, created_at, processed_at
		FROM indexing_queue WHERE id = $1`,
		id,
	).Scan(
		&event.ID,
		&event.EventType,
		&event.DocType,
		&event.SourceID,
		&event.CandidateID,
		&applicationID,
		&jobID,
		&event.Status,
		&event.RetryCount,
		&errorMessage,
		&event.CreatedAt,
		&processedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 404, "indexing event %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching indexing event %d: %w", id, err)
	}
	if applicationID.Valid {
		event.ApplicationID = &applicationID.Int64
	}
	if jobID.Valid {
		event.JobID = &jobID.Int64
	}
	if errorMessage.Valid {
		event.ErrorMessage = &errorMessage.String
	}
	if processedAt.Valid {
		event.ProcessedAt = &processedAt.Time
	}
	return &event, nil
}

// MarkProcessing transitions an event to processing. processed_at is stamped
// only by the terminal transitions.
func (s *Store) MarkProcessing(ctx context.Context, id int64) error {
	return s.updateEvent(ctx, id, `
		UPDATE indexing_queue
		SET status = $2
		WHERE id = $1`, EventStatusProcessing)
}

// MarkCompleted transitions an event to completed and clears any previous
// error message.
func (s *Store) MarkCompleted(ctx context.Context, id int64) error {
	return s.updateEvent(ctx, id, `
		UPDATE indexing_queue
		SET status = $2, processed_at = now(), error_message = NULL
		WHERE id = $1`, EventStatusCompleted)
}

// MarkFailed transitions an event to failed, recording the failure reason and
// incrementing the retry counter.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	_, err := s.client.DB.ExecContext(ctx, `
		UPDATE indexing_queue
		SET status = $2, retry_count = retry_count + 1, error_message = $3, processed_at = now()
		WHERE id = $1`,
		id, EventStatusFailed, message,
	)
	if err != nil {
		return fmt.Errorf("marking event %d failed: %w", id, err)
	}
	return nil
}

func (s *Store) updateEvent(ctx context.Context, id int64, query, status string) error {
	_, err := s.client.DB.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("updating event %d to %s: %w", id, status, err)
	}
	return nil
}
