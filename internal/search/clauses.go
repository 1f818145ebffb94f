package search

import (
	"fmt"
	"strings"

	"github.com/recruitflow/talent-search/internal/extract"
	"github.com/recruitflow/talent-search/internal/store"
)

// buildCandidateQuery compiles the extracted filters into a WHERE clause with
// positional args. The skills join is only required when a skill filter is
// present.
func buildCandidateQuery(f extract.Filters, jobID *int64, limit int) store.CandidateQuery {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.Locations) > 0 {
		placeholders := make([]string, len(f.Locations))
		for i, loc := range f.Locations {
			placeholders[i] = "LOWER(" + arg(loc) + ")"
		}
		clauses = append(clauses,
			fmt.Sprintf("LOWER(c.current_location) IN (%s)", strings.Join(placeholders, ", ")))
	}

	if f.NoticePeriodMax != nil {
		clauses = append(clauses, fmt.Sprintf(
			"(COALESCE(c.notice_period_days, 9999) <= %s OR c.can_join_immediately = true)",
			arg(*f.NoticePeriodMax)))
	}

	if f.CanJoinImmediately != nil && *f.CanJoinImmediately {
		clauses = append(clauses, "c.can_join_immediately = true")
	}

	if f.ExperienceMin != nil {
		clauses = append(clauses, "c.total_experience_years >= "+arg(*f.ExperienceMin))
	}
	if f.ExperienceMax != nil {
		clauses = append(clauses, "c.total_experience_years <= "+arg(*f.ExperienceMax))
	}
	if f.ExpectedSalaryMin != nil {
		clauses = append(clauses, "c.expected_salary_lpa >= "+arg(*f.ExpectedSalaryMin))
	}
	if f.ExpectedSalaryMax != nil {
		clauses = append(clauses, "c.expected_salary_lpa <= "+arg(*f.ExpectedSalaryMax))
	}

	if f.PreferredWorkType != "" {
		clauses = append(clauses, "c.preferred_work_type = "+arg(f.PreferredWorkType))
	}

	if f.CurrentCompany != "" {
		clauses = append(clauses, "c.current_company ILIKE "+arg("%"+f.CurrentCompany+"%"))
	}

	needsSkillsJoin := false
	if len(f.Skills) > 0 {
		needsSkillsJoin = true
		placeholders := make([]string, len(f.Skills))
		for i, skill := range f.Skills {
			placeholders[i] = arg(skill)
		}
		clauses = append(clauses,
			fmt.Sprintf("s.skill_name IN (%s)", strings.Join(placeholders, ", ")))
	}

	if jobID != nil {
		clauses = append(clauses, "a.job_id = "+arg(*jobID))
	}

	return store.CandidateQuery{
		Where:           strings.Join(clauses, " AND "),
		Args:            args,
		NeedsSkillsJoin: needsSkillsJoin,
		Limit:           limit,
	}
}
