package recommend

import "math"

const (
	defaultDifficulty    = 3
	defaultEstimatedTime = 45
)

// Reasons attached to recommendations, chosen by average mastery.
const (
	ReasonFoundational = "Builds foundational skills you need to strengthen"
	ReasonAdvanced     = "Challenges you with advanced concepts"
	ReasonOnTrack      = "Perfect difficulty level for your current progress"
)

// MasteryGain predicts the mastery a module of difficulty d would add.
func MasteryGain(c Context, d int) float64 {
	base := 0.15
	difficultyFactor := (float64(d) - 2.5) / 2.5 * 0.1
	masteryFactor := (1 - c.AverageMastery) * 0.2
	return clamp(base+difficultyFactor+masteryFactor, 0, 0.5)
}

// Confidence blends how well difficulty d matches the learner with their
// recent performance and velocity. The result is always in [0,1].
func Confidence(c Context, d int) float64 {
	difficultyMatch := clamp(1-math.Abs(float64(d)-c.AverageMastery*5)/5, 0, 1)
	return clamp(difficultyMatch*0.4+c.RecentPerformance*0.3+c.LearningVelocity*0.3, 0, 1)
}

// Reason explains a recommendation for a learner at averageMastery.
func Reason(averageMastery float64) string {
	switch {
	case averageMastery < 0.4:
		return ReasonFoundational
	case averageMastery > 0.8:
		return ReasonAdvanced
	default:
		return ReasonOnTrack
	}
}
