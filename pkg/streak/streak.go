// Package streak computes consecutive-day habit streaks over a date-keyed
// completion ledger, treating milestone days as pauses.
package streak

import "time"

// MaxLookback 最多回溯的天数（一年）
const MaxLookback = 366

// Ledger maps a YYYY-MM-DD key to the done flag. A missing key means not done.
type Ledger map[string]bool

// MilestoneSet holds the dates on which tracking is suspended.
type MilestoneSet map[string]struct{}

// NewMilestoneSet builds a set from milestone dates; duplicates collapse.
func NewMilestoneSet(dates ...string) MilestoneSet {
	s := make(MilestoneSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// Has reports whether date is a milestone. Safe on a nil set.
func (s MilestoneSet) Has(date string) bool {
	_, ok := s[date]
	return ok
}

// Add inserts date into the set.
func (s MilestoneSet) Add(date string) {
	s[date] = struct{}{}
}

// Compute returns the current streak ending at today.
//
// If today is neither done nor a milestone the walk starts from yesterday,
// so an unactioned today does not break a streak. Walking backward, a done
// day counts, a milestone day is skipped, and any other day stops the walk.
// Done wins when a date is also a milestone. The walk never covers more than
// MaxLookback days.
func Compute(completions Ledger, milestones MilestoneSet, today time.Time) int {
	cursor := dayOf(today)

	todayKey := cursor.key()
	if !completions[todayKey] && !milestones.Has(todayKey) {
		cursor = cursor.prev()
	}

	count := 0
	for i := 0; i < MaxLookback; i++ {
		key := cursor.key()
		if completions[key] {
			count++
		} else if !milestones.Has(key) {
			break
		}
		cursor = cursor.prev()
	}
	return count
}
