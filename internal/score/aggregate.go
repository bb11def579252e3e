package score

// Weights for combining a user's worst and average post scores
const (
	worstWeight   = 0.7
	averageWeight = 0.3
)

// AggregateUserScore combines post-level scores into one user-level score,
// weighted towards the user's worst post: 0.7*max + 0.3*mean.
// An empty slice yields 0.
func AggregateUserScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	maxScore := scores[0]
	sum := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
		sum += s
	}
	mean := sum / float64(len(scores))

	return worstWeight*maxScore + averageWeight*mean
}
