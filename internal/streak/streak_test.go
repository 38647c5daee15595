package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/abhisek/adaptlearn/internal/store"
)

func TestNextMilestone(t *testing.T) {
	tests := []struct {
		current int
		want    int
	}{
		{0, 5},
		{4, 5},
		{5, 10},
		{9, 10},
		{10, 15},
		{15, 20},
		{19, 20},
		{20, 25},
		{24, 25},
		{25, 30},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NextMilestone(tt.current), "current %d", tt.current)
	}
}

func on(days ...int) []store.Attempt {
	base := time.Date(2026, 4, 1, 15, 0, 0, 0, time.UTC)
	out := make([]store.Attempt, len(days))
	for i, d := range days {
		out[i] = store.Attempt{StartedAt: base.AddDate(0, 0, d)}
	}
	return out
}

func TestCompute(t *testing.T) {
	now := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC) // day 9

	tests := []struct {
		name     string
		attempts []store.Attempt
		current  int
		longest  int
	}{
		{"no attempts", nil, 0, 0},
		{"active today", on(7, 8, 9), 3, 3},
		{"active yesterday keeps streak", on(6, 7, 8), 3, 3},
		{"gap breaks streak", on(5, 6, 7), 0, 3},
		{"older longer run", on(0, 1, 2, 3, 4, 8, 9), 2, 5},
		{"several attempts per day", on(8, 8, 9, 9, 9), 2, 2},
		{"unordered input", on(9, 7, 8), 3, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.attempts, now, time.UTC)
			assert.Equal(t, tt.current, s.Current)
			assert.Equal(t, tt.longest, s.Longest)
			assert.Equal(t, NextMilestone(tt.current), s.NextMilestone)
		})
	}
}

func TestCompute_PrefersCompletionTime(t *testing.T) {
	started := time.Date(2026, 4, 8, 23, 50, 0, 0, time.UTC)
	done := started.Add(20 * time.Minute) // next day
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	s := Compute([]store.Attempt{{StartedAt: started, CompletedAt: &done}}, now, time.UTC)
	assert.Equal(t, 1, s.Current)
	assert.Equal(t, done, s.LastActivity)
}

func TestCompute_Location(t *testing.T) {
	// 23:30 UTC on the 9th is the 10th in Tokyo.
	at := time.Date(2026, 4, 9, 23, 30, 0, 0, time.UTC)
	now := time.Date(2026, 4, 11, 10, 0, 0, 0, time.UTC) // 19:00 on the 11th in Tokyo
	tokyo := time.FixedZone("JST", 9*3600)

	assert.Zero(t, Compute([]store.Attempt{{StartedAt: at}}, now, time.UTC).Current)
	assert.Equal(t, 1, Compute([]store.Attempt{{StartedAt: at}}, now, tokyo).Current)
}
