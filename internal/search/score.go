package search

// Deterministic structured scoring: interview component 0-50 (overall score
// assumed on a 0-5 scale), availability component 0-30. Total range [0, 80].
const defaultNoticeDays = 90

func structuredScore(overallScore *float64, canJoinImmediately bool, noticePeriodDays *int64) float64 {
	interview := 0.0
	if overallScore != nil {
		interview = *overallScore * 10
		if interview > 50 {
			interview = 50
		}
	}

	availability := 0.0
	if canJoinImmediately {
		availability = 30
	} else {
		notice := int64(defaultNoticeDays)
		if noticePeriodDays != nil {
			notice = *noticePeriodDays
		}
		if notice > 20 {
			notice = 20
		}
		availability = float64(20 - notice)
		if availability < 0 {
			availability = 0
		}
	}

	return interview + availability
}
