package pipeline

import "math"

// ScoreTable turns applied labels into the score reported to clients. The
// score is presentation metadata: it is a fixed point table over which steps
// ran and says nothing about the measured quality of the output.
type ScoreTable struct {
	Base            int
	Increments      map[string]int
	IntensityWeight float64
	Ceiling         int
}

// Score returns min(Ceiling, Base + sum of label increments + intensity*weight).
func (t ScoreTable) Score(labels []string, intensity int) int {
	score := t.Base
	for _, label := range labels {
		score += t.Increments[label]
	}
	score += int(math.Round(float64(intensity) * t.IntensityWeight))
	if score > t.Ceiling {
		return t.Ceiling
	}
	return score
}
