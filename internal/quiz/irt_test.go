package quiz

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptlearn/internal/store"
)

func statesWith(masteries ...float64) []store.MasteryState {
	out := make([]store.MasteryState, len(masteries))
	for i, m := range masteries {
		out[i] = store.MasteryState{KnowledgeComponent: fmt.Sprintf("kc-%d", i), Mastery: m}
	}
	return out
}

func TestEstimateAbility(t *testing.T) {
	tests := []struct {
		name   string
		states []store.MasteryState
		want   float64
	}{
		{"no states", nil, 0},
		{"average learner", statesWith(0.5), 0},
		{"mean of states", statesWith(0.4, 0.8), 0.6},
		{"floor", statesWith(0.01), -2.94},
		{"ceiling", statesWith(0.99), 2.94},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, EstimateAbility(tt.states), 1e-9)
		})
	}
}

func TestTargetDifficulty(t *testing.T) {
	tests := []struct {
		theta float64
		want  int
	}{
		{-3, 1},
		{-2.94, 1},
		{-1.6, 1},
		{-1.4, 2},
		{0, 3},
		{0.6, 4},
		{1.49, 4},
		{2.94, 5},
		{3, 5},
		{10, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TargetDifficulty(tt.theta), "theta %f", tt.theta)
	}
}

func TestInformation(t *testing.T) {
	q := store.Question{Difficulty: 3, Discrimination: 2}
	// At the item's difficulty P = 0.5, so I = a²/4.
	assert.InDelta(t, 1.0, Information(q, 3), 1e-12)

	// Information peaks at the difficulty and decays symmetrically.
	assert.Greater(t, Information(q, 3), Information(q, 4))
	assert.InDelta(t, Information(q, 2), Information(q, 4), 1e-12)

	// Unset parameters are read as 1.
	unset := store.Question{}
	assert.InDelta(t, Information(store.Question{Difficulty: 1, Discrimination: 1}, 2.5), Information(unset, 2.5), 1e-12)

	p := 1 / (1 + math.Exp(-1.5*(2-4.0)))
	assert.InDelta(t, 1.5*1.5*p*(1-p), Information(store.Question{Difficulty: 4, Discrimination: 1.5}, 2), 1e-12)
}

func TestSelect_OrdersByInformation(t *testing.T) {
	pool := []store.Question{
		{ID: "far", Difficulty: 5, Discrimination: 1},
		{ID: "near", Difficulty: 3, Discrimination: 1},
		{ID: "sharp", Difficulty: 3, Discrimination: 2},
		{ID: "mid", Difficulty: 4, Discrimination: 1},
	}

	got := Select(pool, 3, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"sharp", "near", "mid"}, ids(got))
	assert.Equal(t, "far", pool[0].ID, "pool must not be reordered")
}

func TestSelect_StableForTies(t *testing.T) {
	var pool []store.Question
	for i := 0; i < 15; i++ {
		pool = append(pool, store.Question{ID: fmt.Sprintf("q%02d", i), Difficulty: 2, Discrimination: 1})
	}

	got := Select(pool, 2, 0)
	require.Len(t, got, DefaultMaxQuestions)
	for i, q := range got {
		assert.Equal(t, fmt.Sprintf("q%02d", i), q.ID)
	}
}

func TestSelect_SmallAndEmptyPools(t *testing.T) {
	pool := []store.Question{{ID: "a"}, {ID: "b"}}
	assert.Len(t, Select(pool, 3, 10), 2)
	assert.Empty(t, Select(nil, 3, 10))
}

func ids(qs []store.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}
