package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Document types that can be indexed. Each maps to one source table.
const (
	DocTypeResume              = "resume"
	DocTypeInterviewTranscript = "interview_transcript"
	DocTypeOneWayTranscript    = "one_way_transcript"
	DocTypeRecruiterComment    = "recruiter_comment"
)

// ValidDocType reports whether docType names an indexable document table.
func ValidDocType(docType string) bool {
	switch docType {
	case DocTypeResume, DocTypeInterviewTranscript, DocTypeOneWayTranscript, DocTypeRecruiterComment:
		return true
	}
	return false
}

// DocumentText resolves the raw text of a document by type and source id.
// Returns ("", nil) when no matching row exists; the caller decides whether
// that is an error.
func (s *Store) DocumentText(ctx context.Context, docType string, sourceID int64) (string, error) {
	switch docType {
	case DocTypeResume:
		return s.scanText(ctx,
			`SELECT resume_text FROM candidate_resumes WHERE resume_id = $1`, sourceID)
	case DocTypeInterviewTranscript:
		return s.scanText(ctx,
			`SELECT transcript_text FROM interview_transcripts WHERE transcript_id = $1`, sourceID)
	case DocTypeOneWayTranscript:
		var question, answer string
		err := s.client.DB.QueryRowContext(ctx,
			`SELECT question_text, answer_text FROM one_way_transcripts WHERE transcript_id = $1`,
			sourceID,
		).Scan(&question, &answer)
		if err == sql.ErrNoRows {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("fetching one-way transcript %d: %w", sourceID, err)
		}
		return question + "\n" + answer, nil
	case DocTypeRecruiterComment:
		return s.scanText(ctx,
			`SELECT comment_text FROM recruiter_comments WHERE comment_id = $1`, sourceID)
	default:
		return "", fmt.Errorf("unknown doc_type %q", docType)
	}
}

func (s *Store) scanText(ctx context.Context, query string, sourceID int64) (string, error) {
	var text sql.NullString
	err := s.client.DB.QueryRowContext(ctx, query, sourceID).Scan(&text)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("fetching document text: %w", err)
	}
	return text.String, nil
}
