package analytics

import "time"

type EventType string

const (
	EventSearch         EventType = "search"
	EventZeroResult     EventType = "zero_result"
	EventIndexProcessed EventType = "index_processed"
)

// SearchEvent is emitted once per completed search request.
type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Strategy  string    `json:"strategy"`
	JobID     *int64    `json:"job_id,omitempty"`
	TopK      int       `json:"top_k"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// IndexingProcessedEvent is emitted when the worker finishes an indexing
// event, successfully or not.
type IndexingProcessedEvent struct {
	Type        EventType `json:"type"`
	EventID     int64     `json:"event_id"`
	EventKind   string    `json:"event_kind"`
	DocType     string    `json:"doc_type"`
	SourceID    int64     `json:"source_id"`
	CandidateID int64     `json:"candidate_id"`
	Status      string    `json:"status"`
	Chunks      int       `json:"chunks"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
}
