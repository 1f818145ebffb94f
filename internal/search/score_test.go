package search

import "testing"

func intPtr(v int64) *int64 { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestStructuredScoreImmediateJoiner(t *testing.T) {
	// availability is the full 30 regardless of notice period
	got := structuredScore(nil, true, intPtr(60))
	if got != 30 {
		t.Errorf("expected 30, got %g", got)
	}
}

func TestStructuredScoreInterviewComponent(t *testing.T) {
	got := structuredScore(floatPtr(4.2), true, nil)
	want := 42.0 + 30.0
	if got != want {
		t.Errorf("expected %g, got %g", want, got)
	}
}

func TestStructuredScoreInterviewCapped(t *testing.T) {
	got := structuredScore(floatPtr(9.9), false, intPtr(0))
	want := 50.0 + 20.0
	if got != want {
		t.Errorf("expected %g, got %g", want, got)
	}
}

func TestStructuredScoreNoticeDecay(t *testing.T) {
	cases := []struct {
		notice int64
		want   float64
	}{
		{0, 20},
		{5, 15},
		{20, 0},
		{45, 0},
	}
	for _, tc := range cases {
		got := structuredScore(nil, false, intPtr(tc.notice))
		if got != tc.want {
			t.Errorf("notice %d: expected %g, got %g", tc.notice, tc.want, got)
		}
	}
}

func TestStructuredScoreUnknownNoticeScoresZero(t *testing.T) {
	// missing notice period is treated as a long notice, not immediate
	got := structuredScore(nil, false, nil)
	if got != 0 {
		t.Errorf("expected 0, got %g", got)
	}
}
