package citation

import "math"

const (
	// scoreCeilingCitations is the citation count that saturates the
	// log-scaled component at 1.0.
	scoreCeilingCitations = 10000

	// graphSignalWeight caps the contribution of relationship-graph
	// in-degree to the final score.
	graphSignalWeight = 0.3

	// scoreFloor keeps works with no signal visible in ranked lists.
	scoreFloor = 0.05
)

// Strength computes a normalized 0-1 importance score for a work.
// Citation counts span orders of magnitude, so the primary component is
// log-scaled; inDegree is the number of relationship-graph edges pointing
// at a matching node and acts as a secondary signal.
func Strength(citationCount *int, inDegree int) float64 {
	var score float64

	if citationCount != nil && *citationCount > 0 {
		score = math.Log1p(float64(*citationCount)) / math.Log1p(scoreCeilingCitations)
		if score > 1 {
			score = 1
		}
	}

	if inDegree > 0 {
		signal := float64(inDegree) * 0.1
		if signal > graphSignalWeight {
			signal = graphSignalWeight
		}
		score += signal * (1 - score)
	}

	if score < scoreFloor {
		score = scoreFloor
	}
	if score > 1 {
		score = 1
	}
	return score
}
