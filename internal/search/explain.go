package search

import (
	"fmt"
	"strings"

	"github.com/recruitflow/talent-search/internal/extract"
)

// buildDeterministicExplanation enumerates the filters that constrained the
// result set. Always available; it has no external dependency.
func buildDeterministicExplanation(f extract.Filters, strategyExplanation string) string {
	var parts []string

	if len(f.Locations) > 0 {
		parts = append(parts, fmt.Sprintf("location in [%s]", strings.Join(f.Locations, ", ")))
	}
	if f.NoticePeriodMax != nil {
		parts = append(parts, fmt.Sprintf("notice period <= %d days", *f.NoticePeriodMax))
	}
	if f.CanJoinImmediately != nil && *f.CanJoinImmediately {
		parts = append(parts, "can join immediately")
	}
	if f.ExperienceMin != nil {
		parts = append(parts, fmt.Sprintf("experience >= %g years", *f.ExperienceMin))
	}
	if f.ExperienceMax != nil {
		parts = append(parts, fmt.Sprintf("experience <= %g years", *f.ExperienceMax))
	}
	if f.ExpectedSalaryMin != nil {
		parts = append(parts, fmt.Sprintf("salary >= %g LPA", *f.ExpectedSalaryMin))
	}
	if f.ExpectedSalaryMax != nil {
		parts = append(parts, fmt.Sprintf("salary <= %g LPA", *f.ExpectedSalaryMax))
	}
	if f.PreferredWorkType != "" {
		parts = append(parts, "work type = "+f.PreferredWorkType)
	}
	if f.CurrentCompany != "" {
		parts = append(parts, fmt.Sprintf("company contains %q", f.CurrentCompany))
	}
	if len(f.Skills) > 0 {
		parts = append(parts, "skills: "+strings.Join(f.Skills, ", "))
	}

	filterStr := "Matched based on search criteria."
	if len(parts) > 0 {
		filterStr = "Matched: " + strings.Join(parts, "; ") + "."
	}
	if strategyExplanation != "" {
		return filterStr + " " + strategyExplanation
	}
	return filterStr
}
