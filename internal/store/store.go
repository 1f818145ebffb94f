// Package store is the relational access layer: candidate rows for the
// structured search tier, document text and candidate metadata for the
// indexing worker, and indexing-event bookkeeping.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	apperrors "github.com/recruitflow/talent-search/pkg/errors"
	"github.com/recruitflow/talent-search/pkg/postgres"
)

// Store provides typed queries over the recruiting schema.
type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

// New creates a Store backed by the given postgres client.
func New(client *postgres.Client) *Store {
	return &Store{
		client: client,
		logger: slog.Default().With("component", "store"),
	}
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.DB.PingContext(ctx)
}

// CandidateRow is one row of the structured search query, with the maximum
// interview score aggregated per candidate.
type CandidateRow struct {
	CandidateID          int64
	CanJoinImmediately   bool
	NoticePeriodDays     sql.NullInt64
	ExpectedSalaryLPA    sql.NullFloat64
	PreferredWorkType    sql.NullString
	CurrentLocation      sql.NullString
	CurrentTitle         sql.NullString
	CurrentCompany       sql.NullString
	TotalExperienceYears sql.NullFloat64
	OverallScore         sql.NullFloat64
}

// CandidateQuery is a compiled structured search: a WHERE clause with
// positional args, plus whether the skills join is needed.
type CandidateQuery struct {
	Where           string
	Args            []any
	NeedsSkillsJoin bool
	Limit           int
}

// SearchCandidates runs the structured candidate query. The caller supplies
// the compiled WHERE clause; the join/aggregation skeleton is fixed here.
func (s *Store) SearchCandidates(ctx context.Context, q CandidateQuery) ([]CandidateRow, error) {
	skillsJoin := ""
	if q.NeedsSkillsJoin {
		skillsJoin = `
			LEFT JOIN candidate_skills cs ON cs.candidate_id = c.candidate_id
			LEFT JOIN skills s ON s.skill_id = cs.skill_id`
	}
	where := ""
	if q.Where != "" {
		where = "WHERE " + q.Where
	}

	query := fmt.Sprintf(`
		SELECT
			c.candidate_id,
			c.can_join_immediately,
			c.notice_period_days,
			c.expected_salary_lpa,
			c.preferred_work_type,
			c.current_location,
			c.current_title,
			c.current_company,
			c.total_experience_years,
			MAX(iscore.overall_score) AS overall_score
		FROM candidates c
		LEFT JOIN job_applications a ON a.candidate_id = c.candidate_id%s
		LEFT JOIN interviews i ON i.application_id = a.application_id
		LEFT JOIN interview_scorecards iscore ON iscore.interview_id = i.interview_id
		%s
		GROUP BY
			c.candidate_id,
			c.can_join_immediately,
			c.notice_period_days,
			c.expected_salary_lpa,
			c.preferred_work_type,
			c.current_location,
			c.current_title,
			c.current_company,
			c.total_experience_years
		LIMIT %d`, skillsJoin, where, q.Limit)

	rows, err := s.client.DB.QueryContext(ctx, query, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("querying candidates: %w", err)
	}
	defer rows.Close()

	var out []CandidateRow
	for rows.Next() {
		var row CandidateRow
		if err := rows.Scan(
			&row.CandidateID,
			&row.CanJoinImmediately,
			&row.NoticePeriodDays,
			&row.ExpectedSalaryLPA,
			&row.PreferredWorkType,
			&row.CurrentLocation,
			&row.CurrentTitle,
			&row.CurrentCompany,
			&row.TotalExperienceYears,
			&row.OverallScore,
		); err != nil {
			return nil, fmt.Errorf("scanning candidate row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating candidate rows: %w", err)
	}
	return out, nil
}

// Job is the subset of the jobs table relevant to search.
type Job struct {
	JobID       int64
	Title       string
	Description string
}

// JobByID fetches a single job. Returns ErrNotFound if the job does not exist.
func (s *Store) JobByID(ctx context.Context, jobID int64) (*Job, error) {
	var (
		job  Job
		desc sql.NullString
	)
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT job_id, job_title, description FROM jobs WHERE job_id = $1`,
		jobID,
	).Scan(&job.JobID, &job.Title, &desc)
	if err == sql.ErrNoRows {
		return nil, apperrors.Newf(apperrors.ErrNotFound, 404, "job %d not found", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching job %d: %w", jobID, err)
	}
	job.Description = desc.String
	return &job, nil
}

// CandidateIDsForJob returns the distinct candidates that applied to a job.
func (s *Store) CandidateIDsForJob(ctx context.Context, jobID int64) ([]int64, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT DISTINCT candidate_id FROM job_applications WHERE job_id = $1`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching applicants for job %d: %w", jobID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning applicant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LatestResumes returns the most recent resume text per candidate.
func (s *Store) LatestResumes(ctx context.Context, candidateIDs []int64) (map[int64]string, error) {
	result := make(map[int64]string)
	if len(candidateIDs) == 0 {
		return result, nil
	}
	rows, err := s.client.DB.QueryContext(ctx, `
		SELECT DISTINCT ON (candidate_id) candidate_id, resume_text
		FROM candidate_resumes
		WHERE candidate_id = ANY($1)
		ORDER BY candidate_id, resume_id DESC`,
		pq.Array(candidateIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("fetching latest resumes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			text string
		)
		if err := rows.Scan(&id, &text); err != nil {
			return nil, fmt.Errorf("scanning resume row: %w", err)
		}
		result[id] = text
	}
	return result, rows.Err()
}

// SkillNames returns the full skills vocabulary, used to seed the fuzzy
// matcher before each extraction.
func (s *Store) SkillNames(ctx context.Context) ([]string, error) {
	rows, err := s.client.DB.QueryContext(ctx, `SELECT skill_name FROM skills ORDER BY skill_name`)
	if err != nil {
		return nil, fmt.Errorf("fetching skill names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning skill name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// CandidateMetadata is the denormalized candidate snapshot written into each
// vector point payload.
type CandidateMetadata struct {
	Skills               []string
	NoticePeriodDays     *int64
	CurrentLocation      string
	TotalExperienceYears *float64
	ExpectedSalaryLPA    *float64
	CanJoinImmediately   bool
	PreferredWorkType    string
	CurrentTitle         string
	CurrentCompany       string
}

// CandidateMetadataByID fetches the candidate row plus skill names for
// payload denormalization. A missing candidate yields empty metadata rather
// than an error, matching a document whose owner was deleted.
func (s *Store) CandidateMetadataByID(ctx context.Context, candidateID int64) (CandidateMetadata, error) {
	var meta CandidateMetadata

	var (
		notice     sql.NullInt64
		location   sql.NullString
		experience sql.NullFloat64
		salary     sql.NullFloat64
		canJoin    sql.NullBool
		workType   sql.NullString
		title      sql.NullString
		company    sql.NullString
	)
	err := s.client.DB.QueryRowContext(ctx, `
		SELECT notice_period_days, current_location, total_experience_years,
		       expected_salary_lpa, can_join_immediately, preferred_work_type,
		       current_title, current_company
		FROM candidates WHERE candidate_id = $1`,
		candidateID,
	).Scan(&notice, &location, &experience, &salary, &canJoin, &workType, &title, &company)
	if err != nil && err != sql.ErrNoRows {
		return meta, fmt.Errorf("fetching candidate %d: %w", candidateID, err)
	}
	if err == nil {
		if notice.Valid {
			meta.NoticePeriodDays = &notice.Int64
		}
		meta.CurrentLocation = location.String
		if experience.Valid {
			meta.TotalExperienceYears = &experience.Float64
		}
		if salary.Valid {
			meta.ExpectedSalaryLPA = &salary.Float64
		}
		meta.CanJoinImmediately = canJoin.Bool
		meta.PreferredWorkType = workType.String
		meta.CurrentTitle = title.String
		meta.CurrentCompany = company.String
	}

	rows, err := s.client.DB.QueryContext(ctx, `
		SELECT s.skill_name
		FROM candidate_skills cs
		JOIN skills s ON s.skill_id = cs.skill_id
		WHERE cs.candidate_id = $1`,
		candidateID,
	)
	if err != nil {
		return meta, fmt.Errorf("fetching skills for candidate %d: %w", candidateID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return meta, fmt.Errorf("scanning candidate skill: %w", err)
		}
		meta.Skills = append(meta.Skills, name)
	}
	return meta, rows.Err()
}
