package mastery

import "math"

const (
	// MinMastery and MaxMastery bound every stored estimate.
	MinMastery = 0.01
	MaxMastery = 0.99
)

// Params are the Bayesian Knowledge Tracing parameters.
type Params struct {
	PInit  float64 `json:"p_init"`  // prior before any observation
	PLearn float64 `json:"p_learn"` // transition to mastered after an opportunity
	PSlip  float64 `json:"p_slip"`  // wrong answer despite mastery
	PGuess float64 `json:"p_guess"` // right answer without mastery
}

// DefaultParams returns the engine's fixed BKT parameters.
func DefaultParams() Params {
	return Params{PInit: 0.1, PLearn: 0.3, PSlip: 0.1, PGuess: 0.25}
}

// Update applies one observation to the prior p and returns the new
// mastery estimate, clamped to [MinMastery, MaxMastery].
func Update(p float64, correct bool, params Params) float64 {
	var posterior float64
	if correct {
		hit := p * (1 - params.PSlip)
		posterior = hit / (hit + (1-p)*params.PGuess)
	} else {
		miss := p * params.PSlip
		posterior = miss / (miss + (1-p)*(1-params.PGuess))
	}
	if math.IsNaN(posterior) {
		posterior = p
	}

	final := posterior + (1-posterior)*params.PLearn
	return clamp(final, MinMastery, MaxMastery)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
