// Package stats aggregates completion ledgers into the numbers shown on the
// dashboard: consistency, best streak, heatmap intensity and weekly progress.
package stats

import (
	"math"
	"time"

	dbcontracts "zenhabit/contracts/db"
	"zenhabit/pkg/streak"
)

const day = 24 * time.Hour

// DoneCount counts the days marked done in a ledger.
func DoneCount(l streak.Ledger) int {
	n := 0
	for _, done := range l {
		if done {
			n++
		}
	}
	return n
}

// Consistency returns done / max(1, whole days since createdAt).
// The value is not capped at 1.
func Consistency(done int, createdAt, now time.Time) float64 {
	days := int(now.Sub(createdAt) / day)
	if days < 1 {
		days = 1
	}
	return float64(done) / float64(days)
}

// Percent rounds a fraction to a whole percentage.
func Percent(f float64) int {
	return int(math.Round(f * 100))
}

// OverallConsistency averages per-habit consistency over all habits.
func OverallConsistency(habits []dbcontracts.Habit, now time.Time) int {
	if len(habits) == 0 {
		return 0
	}
	var sum float64
	for _, h := range habits {
		sum += Consistency(DoneCount(h.Completions), h.CreatedAt, now)
	}
	return Percent(sum / float64(len(habits)))
}

// BestStreak is the largest current streak across habits, active or not.
func BestStreak(habits []dbcontracts.Habit, milestones streak.MilestoneSet, today time.Time) int {
	best := 0
	for _, h := range habits {
		if s := streak.Compute(h.Completions, milestones, today); s > best {
			best = s
		}
	}
	return best
}

// HabitStat 单个习惯的统计
type HabitStat struct {
	HabitID     int    `json:"habit_id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	IsActive    bool   `json:"is_active"`
	Streak      int    `json:"streak"`
	DoneCount   int    `json:"done_count"`
	Consistency int    `json:"consistency"`
}

// ForHabit builds the per-habit stat line.
func ForHabit(h dbcontracts.Habit, milestones streak.MilestoneSet, now time.Time) HabitStat {
	done := DoneCount(h.Completions)
	return HabitStat{
		HabitID:     h.ID,
		Name:        h.Name,
		Color:       h.Color,
		IsActive:    h.IsActive,
		Streak:      streak.Compute(h.Completions, milestones, now),
		DoneCount:   done,
		Consistency: Percent(Consistency(done, h.CreatedAt, now)),
	}
}
