// Package recommend ranks catalog modules for a learner with a contextual
// bandit scoring model over mastery and recent performance.
package recommend

import (
	"github.com/abhisek/adaptlearn/internal/store"
)

const (
	recentWindow   = 5
	velocityWindow = 10
)

// Context is the learner summary the scoring model conditions on.
type Context struct {
	AverageMastery    float64 `json:"average_mastery"`
	RecentPerformance float64 `json:"recent_performance"`
	LearningVelocity  float64 `json:"learning_velocity"`
	PrivacyBudget     float64 `json:"privacy_budget"`
}

// AverageMastery is the mean mastery over states, or 0.5 without any.
func AverageMastery(states []store.MasteryState) float64 {
	if len(states) == 0 {
		return 0.5
	}
	var sum float64
	for _, st := range states {
		sum += st.Mastery
	}
	return sum / float64(len(states))
}

// RecentPerformance averages the scores of the most recent attempts
// (newest first). It is 0 without attempts.
func RecentPerformance(attempts []store.Attempt) float64 {
	n := min(recentWindow, len(attempts))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, a := range attempts[:n] {
		sum += a.Score
	}
	return sum / float64(n)
}

// LearningVelocity sums consecutive score differences over the most recent
// attempts (newest first), normalized by the window length and centered at
// 0.5. Fewer than two attempts give 0.5.
func LearningVelocity(attempts []store.Attempt) float64 {
	if len(attempts) < 2 {
		return 0.5
	}
	window := attempts[:min(velocityWindow, len(attempts))]
	var trend float64
	for i := 1; i < len(window); i++ {
		trend += window[i].Score - window[i-1].Score
	}
	return clamp(0.5+trend/float64(len(window)), 0, 1)
}

// BuildContext summarizes a learner without noise.
func BuildContext(states []store.MasteryState, attempts []store.Attempt, privacyLevel float64) Context {
	return Context{
		AverageMastery:    AverageMastery(states),
		RecentPerformance: RecentPerformance(attempts),
		LearningVelocity:  LearningVelocity(attempts),
		PrivacyBudget:     privacyLevel,
	}
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
