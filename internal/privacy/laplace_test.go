package privacy

import (
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) *Generator {
	return NewGenerator(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), 0, 0)
}

func sampleStats(t *testing.T, g *Generator, epsilon float64, n int) (mean, variance float64) {
	t.Helper()
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		x, err := g.Laplace(epsilon)
		require.NoError(t, err)
		sum += x
		sumSq += x * x
	}
	mean = sum / float64(n)
	variance = sumSq/float64(n) - mean*mean
	return mean, variance
}

func TestLaplace_InvalidEpsilon(t *testing.T) {
	g := seeded(1)
	for _, eps := range []float64{0, -1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := g.Laplace(eps)
		assert.ErrorIs(t, err, ErrInvalidEpsilon, "epsilon %v", eps)
	}
}

func TestLaplace_MeanNearZero(t *testing.T) {
	g := seeded(42)
	mean, _ := sampleStats(t, g, 1.0, 100_000)
	// scale 0.1 → stddev ≈ 0.141; the standard error over 100k draws is ≈ 0.00045.
	assert.InDelta(t, 0, mean, 0.01)
}

func TestLaplace_VarianceMatchesScale(t *testing.T) {
	g := seeded(7)
	_, variance := sampleStats(t, g, 1.0, 100_000)
	// Var = 2b² = 0.02 for b = 0.1.
	assert.InDelta(t, 0.02, variance, 0.002)
}

func TestLaplace_SmallerEpsilonMoreNoise(t *testing.T) {
	g := seeded(99)
	_, tight := sampleStats(t, g, 2.0, 50_000)
	_, loose := sampleStats(t, g, 0.5, 50_000)
	assert.Greater(t, loose, tight)
	// Variance scales with 1/ε², so a 4x epsilon ratio gives ≈16x variance.
	assert.InDelta(t, 16, loose/tight, 3)
}

func TestLaplace_SeededIsReproducible(t *testing.T) {
	a, b := seeded(5), seeded(5)
	for i := 0; i < 100; i++ {
		x, err := a.Laplace(1)
		require.NoError(t, err)
		y, err := b.Laplace(1)
		require.NoError(t, err)
		assert.Equal(t, x, y)
	}
}

func TestLaplace_ConcurrentUse(t *testing.T) {
	g := seeded(3)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				x, err := g.Laplace(1)
				assert.NoError(t, err)
				assert.False(t, math.IsNaN(x) || math.IsInf(x, 0))
			}
		}()
	}
	wg.Wait()
}

func TestShouldApply(t *testing.T) {
	g := seeded(1)
	assert.True(t, g.ShouldApply(0.5))
	assert.True(t, g.ShouldApply(4.99))
	assert.False(t, g.ShouldApply(5))
	assert.False(t, g.ShouldApply(10))
}

func TestScale(t *testing.T) {
	g := seeded(1)
	scale, err := g.Scale(0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, scale, 1e-12)
}
