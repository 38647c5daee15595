// Package quiz selects quiz items matched to a learner's estimated ability
// using a two-parameter logistic IRT model.
package quiz

import (
	"math"
	"sort"

	"github.com/abhisek/adaptlearn/internal/store"
)

const (
	MinDifficulty = 1
	MaxDifficulty = 5

	// DefaultMaxQuestions caps a generated quiz when neither the quiz nor
	// the configuration sets a limit.
	DefaultMaxQuestions = 10
)

// EstimateAbility maps mean mastery onto the IRT ability scale [-3, 3].
// A learner with no recorded states has ability 0.
func EstimateAbility(states []store.MasteryState) float64 {
	if len(states) == 0 {
		return 0
	}
	var sum float64
	for _, st := range states {
		sum += st.Mastery
	}
	return (sum/float64(len(states)) - 0.5) * 6
}

// TargetDifficulty converts ability to a difficulty level in [1, 5].
func TargetDifficulty(theta float64) int {
	d := int(math.Round(theta + 3))
	return min(max(d, MinDifficulty), MaxDifficulty)
}

// Information is the Fisher information of q at the given point on the
// difficulty scale. Unset (zero) discrimination and difficulty are read as 1.
func Information(q store.Question, point float64) float64 {
	a := q.Discrimination
	if a == 0 {
		a = 1
	}
	b := q.Difficulty
	if b == 0 {
		b = 1
	}
	p := 1 / (1 + math.Exp(-a*(point-b)))
	return a * a * p * (1 - p)
}

// Select returns up to limit questions ordered by descending information at
// point. Questions with equal information keep their pool order. The pool
// is not modified.
func Select(pool []store.Question, point float64, limit int) []store.Question {
	if limit <= 0 {
		limit = DefaultMaxQuestions
	}

	type scored struct {
		q    store.Question
		info float64
	}
	ranked := make([]scored, len(pool))
	for i, q := range pool {
		ranked[i] = scored{q: q, info: Information(q, point)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].info > ranked[j].info
	})

	n := min(limit, len(ranked))
	out := make([]store.Question, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].q
	}
	return out
}
