package search

import (
	"context"

	"github.com/recruitflow/talent-search/internal/extract"
	"github.com/recruitflow/talent-search/internal/vectorstore"
)

// buildVectorFilter maps extracted filters onto vector store payload
// conditions. Returns nil when no condition applies.
func buildVectorFilter(f extract.Filters) *vectorstore.Filter {
	var must []vectorstore.Condition

	if len(f.Skills) > 0 {
		must = append(must, vectorstore.MatchAnyKeyword("skills", f.Skills))
	}
	if len(f.Locations) > 0 {
		must = append(must, vectorstore.MatchAnyKeyword("current_location", f.Locations))
	}
	if f.NoticePeriodMax != nil {
		must = append(must, vectorstore.RangeLTE("notice_period_days", float64(*f.NoticePeriodMax)))
	}
	if f.CanJoinImmediately != nil {
		must = append(must, vectorstore.MatchBool("can_join_immediately", *f.CanJoinImmediately))
	}
	if f.ExperienceMin != nil {
		must = append(must, vectorstore.RangeGTE("total_experience_years", *f.ExperienceMin))
	}
	if f.ExperienceMax != nil {
		must = append(must, vectorstore.RangeLTE("total_experience_years", *f.ExperienceMax))
	}
	if f.ExpectedSalaryMin != nil {
		must = append(must, vectorstore.RangeGTE("expected_salary_lpa", *f.ExpectedSalaryMin))
	}
	if f.ExpectedSalaryMax != nil {
		must = append(must, vectorstore.RangeLTE("expected_salary_lpa", *f.ExpectedSalaryMax))
	}
	if f.PreferredWorkType != "" {
		must = append(must, vectorstore.MatchKeyword("preferred_work_type", f.PreferredWorkType))
	}
	if f.CurrentCompany != "" {
		must = append(must, vectorstore.MatchKeyword("current_company", f.CurrentCompany))
	}

	if len(must) == 0 {
		return nil
	}
	return &vectorstore.Filter{Must: must}
}

// vectorFilterWithJob extends the payload filter with a job-applicant
// restriction. A job with zero applicants produces an impossible condition so
// the tier returns no results instead of silently dropping the constraint.
func (s *Service) vectorFilterWithJob(ctx context.Context, f extract.Filters, jobID *int64) (*vectorstore.Filter, error) {
	base := buildVectorFilter(f)
	if jobID == nil {
		return base, nil
	}

	candidateIDs, err := s.store.CandidateIDsForJob(ctx, *jobID)
	if err != nil {
		return nil, err
	}
	if len(candidateIDs) == 0 {
		s.logger.Warn("job has no applicants, restricting to empty set", "job_id", *jobID)
		return &vectorstore.Filter{Must: []vectorstore.Condition{
			vectorstore.MatchInt("candidate_id", -1),
		}}, nil
	}

	restriction := vectorstore.MatchAnyInt("candidate_id", candidateIDs)
	if base == nil {
		return &vectorstore.Filter{Must: []vectorstore.Condition{restriction}}, nil
	}
	base.Must = append(base.Must, restriction)
	return base, nil
}
