// Package privacy adds calibrated Laplace noise to released statistics and
// keeps a ledger of the privacy budget each release consumes.
package privacy

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
)

const (
	// DefaultSensitivity is the L1 sensitivity of a released score in [0, 1].
	DefaultSensitivity = 0.1

	// DefaultNoiseThreshold is the epsilon at or above which no noise is added.
	DefaultNoiseThreshold = 5.0
)

// ErrInvalidEpsilon is returned for a non-positive or non-finite epsilon.
var ErrInvalidEpsilon = errors.New("epsilon must be a positive finite number")

// Generator draws Laplace noise. It is safe for concurrent use.
type Generator struct {
	sensitivity float64
	threshold   float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator returns a Generator drawing from rng. A nil rng is seeded
// from the runtime's entropy source.
func NewGenerator(rng *rand.Rand, sensitivity, threshold float64) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if sensitivity <= 0 {
		sensitivity = DefaultSensitivity
	}
	if threshold <= 0 {
		threshold = DefaultNoiseThreshold
	}
	return &Generator{sensitivity: sensitivity, threshold: threshold, rng: rng}
}

// Scale returns the Laplace scale b = sensitivity/epsilon.
func (g *Generator) Scale(epsilon float64) (float64, error) {
	if err := validEpsilon(epsilon); err != nil {
		return 0, err
	}
	return g.sensitivity / epsilon, nil
}

// Laplace samples Laplace(0, sensitivity/epsilon) by inverse transform.
func (g *Generator) Laplace(epsilon float64) (float64, error) {
	scale, err := g.Scale(epsilon)
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	u := g.rng.Float64()
	// u == 0.5 maps to an infinite draw.
	for u == 0.5 {
		u = g.rng.Float64()
	}
	g.mu.Unlock()

	return scale * sign(u-0.5) * math.Log(1-2*math.Min(u, 1-u)), nil
}

// ShouldApply reports whether a release at epsilon requires noise.
func (g *Generator) ShouldApply(epsilon float64) bool {
	return epsilon < g.threshold
}

func validEpsilon(epsilon float64) error {
	if math.IsNaN(epsilon) || math.IsInf(epsilon, 0) || epsilon <= 0 {
		return ErrInvalidEpsilon
	}
	return nil
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
