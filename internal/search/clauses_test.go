package search

import (
	"strings"
	"testing"

	"github.com/recruitflow/talent-search/internal/extract"
)

func TestBuildCandidateQueryEmpty(t *testing.T) {
	q := buildCandidateQuery(extract.Filters{}, nil, 50)
	if q.Where != "" {
		t.Errorf("expected empty where clause, got %q", q.Where)
	}
	if len(q.Args) != 0 {
		t.Errorf("expected no args, got %v", q.Args)
	}
	if q.NeedsSkillsJoin {
		t.Error("skills join should not be required without a skill filter")
	}
	if q.Limit != 50 {
		t.Errorf("expected limit 50, got %d", q.Limit)
	}
}

func TestBuildCandidateQuerySkillsJoinElision(t *testing.T) {
	withSkills := buildCandidateQuery(extract.Filters{Skills: []string{"go", "kafka"}}, nil, 50)
	if !withSkills.NeedsSkillsJoin {
		t.Error("skill filter must require the skills join")
	}
	if !strings.Contains(withSkills.Where, "s.skill_name IN ($1, $2)") {
		t.Errorf("unexpected where clause: %q", withSkills.Where)
	}

	withoutSkills := buildCandidateQuery(extract.Filters{Locations: []string{"Pune"}}, nil, 50)
	if withoutSkills.NeedsSkillsJoin {
		t.Error("location-only filter must not require the skills join")
	}
}

func TestBuildCandidateQueryLocationCaseInsensitive(t *testing.T) {
	q := buildCandidateQuery(extract.Filters{Locations: []string{"Bangalore", "Pune"}}, nil, 50)
	if !strings.Contains(q.Where, "LOWER(c.current_location) IN (LOWER($1), LOWER($2))") {
		t.Errorf("unexpected where clause: %q", q.Where)
	}
	if q.Args[0] != "Bangalore" || q.Args[1] != "Pune" {
		t.Errorf("unexpected args: %v", q.Args)
	}
}

func TestBuildCandidateQueryNoticeTreatsNullAsLong(t *testing.T) {
	max := 30
	q := buildCandidateQuery(extract.Filters{NoticePeriodMax: &max}, nil, 50)
	if !strings.Contains(q.Where, "COALESCE(c.notice_period_days, 9999) <= $1") {
		t.Errorf("unexpected where clause: %q", q.Where)
	}
	if !strings.Contains(q.Where, "c.can_join_immediately = true") {
		t.Errorf("immediate joiners must pass the notice filter: %q", q.Where)
	}
}

func TestBuildCandidateQueryCompanySubstring(t *testing.T) {
	q := buildCandidateQuery(extract.Filters{CurrentCompany: "Acme"}, nil, 50)
	if !strings.Contains(q.Where, "c.current_company ILIKE $1") {
		t.Errorf("unexpected where clause: %q", q.Where)
	}
	if q.Args[0] != "%Acme%" {
		t.Errorf("expected substring pattern, got %v", q.Args[0])
	}
}

func TestBuildCandidateQueryArgOrdering(t *testing.T) {
	min := 3.0
	jobID := int64(7)
	q := buildCandidateQuery(extract.Filters{
		Locations:     []string{"Chennai"},
		ExperienceMin: &min,
		Skills:        []string{"python"},
	}, &jobID, 50)

	want := []any{"Chennai", 3.0, "python", int64(7)}
	if len(q.Args) != len(want) {
		t.Fatalf("expected %d args, got %v", len(want), q.Args)
	}
	for i := range want {
		if q.Args[i] != want[i] {
			t.Errorf("arg %d: expected %v, got %v", i, want[i], q.Args[i])
		}
	}
	if !strings.Contains(q.Where, "a.job_id = $4") {
		t.Errorf("unexpected where clause: %q", q.Where)
	}
}
