package indexing

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/recruitflow/talent-search/internal/store"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
	"github.com/recruitflow/talent-search/pkg/logger"
)

// EventReader fetches queue rows for the status endpoint.
type EventReader interface {
	EventByID(ctx context.Context, id int64) (*store.IndexingEvent, error)
}

// Handler exposes the indexing queue over HTTP: enqueue and status lookup.
type Handler struct {
	publisher *Publisher
	reader    EventReader
	logger    *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(publisher *Publisher, reader EventReader) *Handler {
	return &Handler{
		publisher: publisher,
		reader:    reader,
		logger:    slog.Default().With("component", "indexing-handler"),
	}
}

// Register mounts the indexing routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/index-events", h.handleCreate)
	mux.HandleFunc("GET /api/v1/index-events/{id}", h.handleGet)
}

type createRequest struct {
	EventType     string `json:"event_type"`
	DocType       string `json:"doc_type"`
	SourceID      int64  `json:"source_id"`
	CandidateID   int64  `json:"candidate_id"`
	ApplicationID *int64 `json:"application_id,omitempty"`
	JobID         *int64 `json:"job_id,omitempty"`
}

func (r createRequest) validate() error {
	switch strings.ToUpper(r.EventType) {
	case store.EventTypeUpsert, store.EventTypeDelete:
	default:
		return apperrors.Newf(apperrors.ErrInvalidInput, 400, "event_type must be UPSERT or DELETE")
	}
	if !store.ValidDocType(r.DocType) {
		return apperrors.Newf(apperrors.ErrInvalidInput, 400, "unknown doc_type %q", r.DocType)
	}
	if r.SourceID <= 0 {
		return apperrors.New(apperrors.ErrInvalidInput, 400, "source_id is required")
	}
	if r.CandidateID <= 0 {
		return apperrors.New(apperrors.ErrInvalidInput, 400, "candidate_id is required")
	}
	return nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.ErrInvalidInput, 400, "invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.publisher.Enqueue(r.Context(), store.IndexingEvent{
		EventType:     strings.ToUpper(req.EventType),
		DocType:       req.DocType,
		SourceID:      req.SourceID,
		CandidateID:   req.CandidateID,
		ApplicationID: req.ApplicationID,
		JobID:         req.JobID,
	})
	if err != nil {
		log := logger.FromContext(r.Context()).With("component", "indexing-handler")
		log.Error("enqueue failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, created)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, apperrors.New(apperrors.ErrInvalidInput, 400, "invalid event id"))
		return
	}
	event, err := h.reader.EventByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encoding response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{
		"error": err.Error(),
		"code":  apperrors.TaxonomyCode(err),
	})
}
