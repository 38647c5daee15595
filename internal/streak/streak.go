// Package streak derives daily activity streaks from attempt history.
package streak

import (
	"time"

	"github.com/abhisek/adaptlearn/internal/store"
)

// BaseMilestone is the first streak length worth celebrating.
const BaseMilestone = 5

// Streak summarizes consecutive active days for one learner.
type Streak struct {
	Current       int       `json:"current"`
	Longest       int       `json:"longest"`
	LastActivity  time.Time `json:"last_activity,omitempty"`
	NextMilestone int       `json:"next_milestone"`
}

// NextMilestone returns the next streak milestone above current.
func NextMilestone(current int) int {
	for _, t := range []int{BaseMilestone, 10, 15, 20} {
		if t > current {
			return t
		}
	}
	// Beyond 20, every 5 days.
	return ((current / 5) + 1) * 5
}

// Compute walks attempts (any order) and reports the streak as of now.
// Days are calendar days in loc. The current streak survives until the end
// of the day after the last activity.
func Compute(attempts []store.Attempt, now time.Time, loc *time.Location) Streak {
	if loc == nil {
		loc = time.UTC
	}

	days := make(map[time.Time]bool, len(attempts))
	var last time.Time
	for _, a := range attempts {
		at := a.StartedAt
		if a.CompletedAt != nil {
			at = *a.CompletedAt
		}
		if at.IsZero() {
			continue
		}
		days[day(at, loc)] = true
		if at.After(last) {
			last = at
		}
	}

	s := Streak{NextMilestone: BaseMilestone}
	if len(days) == 0 {
		return s
	}
	s.LastActivity = last

	// Longest run: start from days whose predecessor is inactive.
	for d := range days {
		if days[d.AddDate(0, 0, -1)] {
			continue
		}
		run := 1
		for days[d.AddDate(0, 0, run)] {
			run++
		}
		s.Longest = max(s.Longest, run)
	}

	today := day(now, loc)
	lastDay := day(last, loc)
	if lastDay.Equal(today) || lastDay.Equal(today.AddDate(0, 0, -1)) {
		for d := lastDay; days[d]; d = d.AddDate(0, 0, -1) {
			s.Current++
		}
	}
	s.NextMilestone = NextMilestone(s.Current)
	return s
}

func day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
