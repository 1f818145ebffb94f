package extract

import (
	"strings"

	"github.com/xrash/smetrics"
)

// skillMatcher resolves free-form skill names to their canonical vocabulary
// entries using Jaro-Winkler similarity.
type skillMatcher struct {
	names    []string
	lowered  []string
	minScore float64
}

func newSkillMatcher(names []string, minScore float64) *skillMatcher {
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}
	return &skillMatcher{names: names, lowered: lowered, minScore: minScore}
}

// findBest returns the canonical name with the highest similarity above the
// threshold. Exact case-insensitive matches win immediately.
func (m *skillMatcher) findBest(skill string) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(skill))
	if needle == "" {
		return "", false
	}

	bestScore := 0.0
	bestIdx := -1
	for i, candidate := range m.lowered {
		if candidate == needle {
			return m.names[i], true
		}
		score := smetrics.JaroWinkler(needle, candidate, 0.7, 4)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx >= 0 && bestScore >= m.minScore {
		return m.names[bestIdx], true
	}
	return "", false
}
