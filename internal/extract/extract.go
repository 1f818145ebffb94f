// Package extract classifies a recruiter query into a search strategy and
// pulls out structured filters via LLM structured output.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/recruitflow/talent-search/internal/llm"
	apperrors "github.com/recruitflow/talent-search/pkg/errors"
	"github.com/recruitflow/talent-search/pkg/logger"
	"github.com/recruitflow/talent-search/pkg/metrics"
)

// Strategy selects which search tier answers the query. It is chosen exactly
// once per query, here; the tier engines never override it.
type Strategy string

const (
	StrategyStructured Strategy = "structured"
	StrategyHybrid     Strategy = "hybrid"
	StrategySemantic   Strategy = "semantic"
)

// Filters are the optional structured predicates extracted from the query.
// Absence means no constraint, never zero.
type Filters struct {
	Locations          []string `json:"locations,omitempty"`
	Skills             []string `json:"skills,omitempty"`
	ExperienceMin      *float64 `json:"experience_min,omitempty"`
	ExperienceMax      *float64 `json:"experience_max,omitempty"`
	NoticePeriodMax    *int     `json:"notice_period_max,omitempty"`
	CanJoinImmediately *bool    `json:"can_join_immediately,omitempty"`
	ExpectedSalaryMin  *float64 `json:"expected_salary_min,omitempty"`
	ExpectedSalaryMax  *float64 `json:"expected_salary_max,omitempty"`
	PreferredWorkType  string   `json:"preferred_work_type,omitempty"`
	CurrentCompany     string   `json:"current_company,omitempty"`
}

// Extraction is the full extractor output.
type Extraction struct {
	Strategy            Strategy `json:"search_strategy"`
	StrategyExplanation string   `json:"strategy_explanation"`
	SemanticQuery       string   `json:"semantic_query"`
	Filters             Filters  `json:"extracted_filters"`
}

// extractionSchema is the JSON schema sent with the structured-output call.
var extractionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"search_strategy": {
			"type": "string",
			"enum": ["structured", "hybrid", "semantic"],
			"description": "Level 0=structured (SQL only), Level 1=hybrid (SQL filters + vector), Level 2=semantic (vector only)"
		},
		"strategy_explanation": {
			"type": "string",
			"description": "Brief explanation of why this strategy was chosen"
		},
		"semantic_query": {
			"type": "string",
			"description": "Concise text to embed for vector search. Empty for pure structured queries."
		},
		"extracted_filters": {
			"type": "object",
			"properties": {
				"locations": {"type": "array", "items": {"type": "string"}, "description": "City names from current_location"},
				"skills": {"type": "array", "items": {"type": "string"}, "description": "Skill names to filter on"},
				"experience_min": {"type": "number", "description": "Minimum years of experience"},
				"experience_max": {"type": "number", "description": "Maximum years of experience"},
				"notice_period_max": {"type": "number", "description": "Maximum notice period in days (0 = immediate)"},
				"can_join_immediately": {"type": "boolean", "description": "True if candidate can join immediately"},
				"expected_salary_min": {"type": "number", "description": "Minimum expected salary in LPA"},
				"expected_salary_max": {"type": "number", "description": "Maximum expected salary in LPA"},
				"preferred_work_type": {"type": "string", "enum": ["Remote", "Onsite", "Hybrid"], "description": "Work type preference"},
				"current_company": {"type": "string", "description": "Company name to match (partial match)"}
			},
			"required": []
		}
	},
	"required": ["search_strategy", "strategy_explanation", "semantic_query", "extracted_filters"]
}`)

const columnsDescription = `Available filterable columns (extract values ONLY if explicitly mentioned in query):

CANDIDATES TABLE:
- current_location (string): City name, e.g., "Delhi", "Bangalore", "Hyderabad"
- total_experience_years (number): Years of experience, e.g., 5, 10
- notice_period_days (integer): Days until can join. 0 means immediate joiner.
- can_join_immediately (boolean): True if notice_period is 0
- expected_salary_lpa (number): Expected salary in Lakhs Per Annum
- preferred_work_type (string): "Remote", "Onsite", or "Hybrid"
- current_company (string): Company name like "Google", "Microsoft"

SKILLS TABLE (via candidate_skills join):
- skill_name (string): Technical skills like "React", "Docker", "Python", "AWS"

STRATEGY GUIDANCE:
- STRUCTURED (Level 0): Use when query can be answered purely with SQL filters on above columns.
  Examples: "immediate joiners in Delhi", "engineers with >5 years experience", "candidates with React skill"

- HYBRID (Level 1): Use when query has BOTH filterable criteria AND conceptual/keyword search.
  Examples: "candidates in Hyderabad who mention Docker", "Backend Engineers discussing production issues"

- SEMANTIC (Level 2): Use when query requires understanding meaning from text (resumes, transcripts, comments).
  Examples: "who demonstrates ownership", "strong system design knowledge", "good communication skills"`

// SkillVocabulary supplies the live skill names used to seed the fuzzy
// matcher before each extraction.
type SkillVocabulary interface {
	SkillNames(ctx context.Context) ([]string, error)
}

// Extractor turns free-text queries into Extractions.
type Extractor struct {
	llm       llm.StructuredClient
	vocab     SkillVocabulary
	minScore  float64
	metrics   *metrics.Metrics
	baseLog   *slog.Logger
}

// New creates an Extractor. minScore is the fuzzy-match acceptance threshold
// in [0,1]; metrics may be nil.
func New(client llm.StructuredClient, vocab SkillVocabulary, minScore float64, m *metrics.Metrics) *Extractor {
	return &Extractor{
		llm:      client,
		vocab:    vocab,
		minScore: minScore,
		metrics:  m,
		baseLog:  slog.Default().With("component", "extractor"),
	}
}

// Extract classifies the query. An LLM failure is fatal: a wrong silent
// fallback would waste a full search cycle downstream.
func (e *Extractor) Extract(ctx context.Context, query string, thinking llm.Thinking) (*Extraction, error) {
	log := logger.FromContext(ctx).With("component", "extractor")
	log.Info("extracting intent", "query", query)

	start := time.Now()
	var result Extraction
	err := e.llm.StructuredOutput(ctx, buildPrompt(query), "query_extraction", extractionSchema, thinking, &result)
	if e.metrics != nil {
		e.metrics.ExtractionLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrExtraction, err)
	}

	switch result.Strategy {
	case StrategyStructured, StrategyHybrid, StrategySemantic:
	default:
		result.Strategy = StrategyHybrid
	}
	if result.SemanticQuery == "" {
		result.SemanticQuery = query
	}
	result.Filters.Skills = e.normalizeSkills(ctx, result.Filters.Skills)

	log.Info("extraction complete",
		"strategy", string(result.Strategy),
		"skills", result.Filters.Skills,
		"locations", result.Filters.Locations,
	)
	return &result, nil
}

func buildPrompt(query string) string {
	return fmt.Sprintf(`You are a query classifier for a candidate search system.
Analyze the query and extract filters + classify the search strategy.

%s

IMPORTANT RULES:
- Only extract filter values that are EXPLICITLY mentioned in the query.
- Do NOT invent or assume values.
- For semantic queries, semantic_query should be the conceptual part to search.
- For structured queries, semantic_query can be empty.

User Query: %q

Return JSON matching the schema.`, columnsDescription, query)
}

// normalizeSkills maps extracted skill names onto the canonical vocabulary
// via fuzzy matching. Any failure degrades to the raw values.
func (e *Extractor) normalizeSkills(ctx context.Context, skills []string) []string {
	if len(skills) == 0 {
		return skills
	}
	names, err := e.vocab.SkillNames(ctx)
	if err != nil {
		e.baseLog.Warn("skill vocabulary refresh failed, using raw values", "error", err)
		return skills
	}
	matcher := newSkillMatcher(names, e.minScore)
	out := make([]string, len(skills))
	for i, skill := range skills {
		if match, ok := matcher.findBest(skill); ok {
			out[i] = match
		} else {
			out[i] = skill
		}
	}
	return out
}
