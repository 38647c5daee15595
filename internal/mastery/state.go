package mastery

import (
	"sort"

	"github.com/abhisek/adaptlearn/internal/store"
)

// Level buckets a mastery estimate for dashboards.
type Level string

const (
	LevelStrong     Level = "strong"
	LevelDeveloping Level = "developing"
	LevelNeedsWork  Level = "needs-work"
)

// LevelOf maps a mastery estimate to its Level.
func LevelOf(m float64) Level {
	switch {
	case m >= 0.8:
		return LevelStrong
	case m >= 0.5:
		return LevelDeveloping
	default:
		return LevelNeedsWork
	}
}

// Summary is a per-user rollup of knowledge component states.
type Summary struct {
	Strong         []string `json:"strong"`
	Developing     []string `json:"developing"`
	NeedsWork      []string `json:"needs_work"`
	AverageMastery float64  `json:"average_mastery"`
	TotalAttempts  int      `json:"total_attempts"`
}

// Breakdown groups states by Level. Knowledge components within a bucket are
// sorted by mastery, weakest first, then by name.
func Breakdown(states []store.MasteryState) Summary {
	sorted := make([]store.MasteryState, len(states))
	copy(sorted, states)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Mastery != sorted[j].Mastery {
			return sorted[i].Mastery < sorted[j].Mastery
		}
		return sorted[i].KnowledgeComponent < sorted[j].KnowledgeComponent
	})

	var sum Summary
	var total float64
	for _, st := range sorted {
		total += st.Mastery
		sum.TotalAttempts += st.Attempts
		switch LevelOf(st.Mastery) {
		case LevelStrong:
			sum.Strong = append(sum.Strong, st.KnowledgeComponent)
		case LevelDeveloping:
			sum.Developing = append(sum.Developing, st.KnowledgeComponent)
		default:
			sum.NeedsWork = append(sum.NeedsWork, st.KnowledgeComponent)
		}
	}
	if len(sorted) > 0 {
		sum.AverageMastery = total / float64(len(sorted))
	}
	return sum
}
