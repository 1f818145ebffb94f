package indexing

import (
	"regexp"
	"testing"
)

var uuidShape = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestPointIDDeterministic(t *testing.T) {
	a := pointID("resume", 42, 0)
	b := pointID("resume", 42, 0)
	if a != b {
		t.Errorf("same inputs must produce the same id: %s vs %s", a, b)
	}
}

func TestPointIDDistinct(t *testing.T) {
	ids := map[string]bool{
		pointID("resume", 42, 0):               true,
		pointID("resume", 42, 1):               true,
		pointID("resume", 43, 0):               true,
		pointID("interview_transcript", 42, 0): true,
	}
	if len(ids) != 4 {
		t.Errorf("expected 4 distinct ids, got %d", len(ids))
	}
}

func TestPointIDFormat(t *testing.T) {
	id := pointID("recruiter_comment", 7, 3)
	if !uuidShape.MatchString(id) {
		t.Errorf("id %q is not UUID-shaped", id)
	}
}
