package mastery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/adaptlearn/internal/store"
)

func TestLevelOf(t *testing.T) {
	tests := []struct {
		mastery float64
		want    Level
	}{
		{0.99, LevelStrong},
		{0.8, LevelStrong},
		{0.79, LevelDeveloping},
		{0.5, LevelDeveloping},
		{0.49, LevelNeedsWork},
		{0.01, LevelNeedsWork},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelOf(tt.mastery), "mastery %f", tt.mastery)
	}
}

func TestBreakdown(t *testing.T) {
	states := []store.MasteryState{
		{KnowledgeComponent: "geometry", Mastery: 0.9, Attempts: 6},
		{KnowledgeComponent: "algebra", Mastery: 0.3, Attempts: 2},
		{KnowledgeComponent: "fractions", Mastery: 0.6, Attempts: 3},
		{KnowledgeComponent: "decimals", Mastery: 0.2, Attempts: 1},
	}

	sum := Breakdown(states)
	assert.Equal(t, []string{"geometry"}, sum.Strong)
	assert.Equal(t, []string{"fractions"}, sum.Developing)
	assert.Equal(t, []string{"decimals", "algebra"}, sum.NeedsWork)
	assert.InDelta(t, 0.5, sum.AverageMastery, 1e-9)
	assert.Equal(t, 12, sum.TotalAttempts)

	// Input order is untouched.
	assert.Equal(t, "geometry", states[0].KnowledgeComponent)
}

func TestBreakdown_Empty(t *testing.T) {
	sum := Breakdown(nil)
	assert.Zero(t, sum.AverageMastery)
	assert.Empty(t, sum.Strong)
	assert.Empty(t, sum.NeedsWork)
}
