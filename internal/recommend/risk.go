package recommend

import (
	"time"

	"github.com/abhisek/adaptlearn/internal/store"
)

// RiskLevel grades how likely a learner is to disengage.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

const (
	activityWindow   = 7 * 24 * time.Hour
	minWeeklyActions = 3
	minPerformance   = 0.6
	strugglingCutoff = 0.3
	maxStruggling    = 3
)

// Risk is the outcome of AssessRisk.
type Risk struct {
	Level         RiskLevel `json:"level"`
	Factors       []string  `json:"factors"`
	Interventions []string  `json:"interventions"`
}

var interventions = map[RiskLevel][]string{
	RiskLow:    {"Keep up the great work!", "Consider tackling more challenging topics"},
	RiskMedium: {"Schedule regular study sessions", "Review problem areas more frequently"},
	RiskHigh:   {"Consider working with a tutor", "Take more frequent breaks between study sessions", "Focus on foundational concepts"},
}

// AssessRisk grades a learner from attempts (newest first) and mastery
// states as of now. Later checks override earlier ones.
func AssessRisk(attempts []store.Attempt, states []store.MasteryState, now time.Time) Risk {
	r := Risk{Level: RiskLow, Factors: []string{}}

	cutoff := now.Add(-activityWindow)
	recent := 0
	for _, a := range attempts {
		at := a.StartedAt
		if a.CompletedAt != nil {
			at = *a.CompletedAt
		}
		if at.After(cutoff) {
			recent++
		}
	}
	if recent < minWeeklyActions {
		r.Level = RiskMedium
		r.Factors = append(r.Factors, "Low recent activity")
	}

	if RecentPerformance(attempts) < minPerformance {
		r.Level = RiskHigh
		r.Factors = append(r.Factors, "Declining quiz performance")
	}

	struggling := 0
	for _, st := range states {
		if st.Mastery < strugglingCutoff {
			struggling++
		}
	}
	if struggling > maxStruggling {
		r.Level = RiskHigh
		r.Factors = append(r.Factors, "Multiple areas need attention")
	}

	r.Interventions = append([]string(nil), interventions[r.Level]...)
	return r
}
