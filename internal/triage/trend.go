package triage

const (
	TrendImproving        = "improving"
	TrendStable           = "stable"
	TrendWorsening        = "worsening"
	TrendInsufficientData = "insufficient_data"
)

// computeTrend compares the mean of the 5 most recent scores against the
// mean of up to the next 5, with a 5-point band counting as stable. Scores
// must be ordered newest first. Fewer than 5 scores is not enough signal.
func computeTrend(scores []float64) string {
	if len(scores) < 5 {
		return TrendInsufficientData
	}

	recentAvg := mean(scores[:5])

	olderAvg := recentAvg
	if len(scores) > 5 {
		end := 10
		if end > len(scores) {
			end = len(scores)
		}
		olderAvg = mean(scores[5:end])
	}

	switch {
	case recentAvg < olderAvg-5:
		return TrendImproving
	case recentAvg > olderAvg+5:
		return TrendWorsening
	default:
		return TrendStable
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
