package service

import (
	"context"
	"fmt"

	"zenhabit/pkg/stats"
	"zenhabit/pkg/streak"
)

type Dashboard struct {
	Date          string              `json:"date"`
	Consistency   int                 `json:"consistency"`
	BestStreak    int                 `json:"best_streak"`
	TotalHabits   int                 `json:"total_habits"`
	ActiveHabits  int                 `json:"active_habits"`
	Today         stats.DayProgress   `json:"today"`
	Habits        []stats.HabitStat   `json:"habits"`
	Week          []stats.DayProgress `json:"week"`
	NextMilestone *MilestoneView      `json:"next_milestone,omitempty"`
}

// Dashboard aggregates the user's stats for today. Results are cached per
// user and day until the next write.
func (s *Service) Dashboard(ctx context.Context, userID int) (*Dashboard, error) {
	today := s.today()
	todayKey := streak.Key(today)

	var cached Dashboard
	if s.cache != nil && s.cache.Get(ctx, userID, todayKey, &cached) {
		return &cached, nil
	}

	habits, err := s.habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ms, milestones, err := s.milestoneSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{
		Date:        todayKey,
		Consistency: stats.OverallConsistency(habits, today),
		BestStreak:  stats.BestStreak(habits, ms, today),
		TotalHabits: len(habits),
		Habits:      make([]stats.HabitStat, 0, len(habits)),
		Week:        stats.Week(habits, milestones, today),
	}
	for _, h := range habits {
		if h.IsActive {
			d.ActiveHabits++
		}
		d.Habits = append(d.Habits, stats.ForHabit(h, ms, today))
	}
	for _, p := range d.Week {
		if p.IsToday {
			d.Today = p
		}
	}

	for _, m := range milestones {
		days, err := daysBetween(todayKey, m.Date)
		if err != nil || days < 0 {
			continue
		}
		d.NextMilestone = &MilestoneView{Milestone: m, DaysUntil: days, Soon: days < SoonWindow}
		break
	}

	if s.cache != nil {
		s.cache.Set(ctx, userID, todayKey, d)
	}
	return d, nil
}

// Heatmap returns one cell per day of year; year 0 means the current year.
func (s *Service) Heatmap(ctx context.Context, userID, year int) ([]stats.HeatmapCell, error) {
	if year == 0 {
		year = s.today().Year()
	}
	if year < 1970 || year > 9999 {
		return nil, fmt.Errorf("%w: year %d out of range", ErrValidation, year)
	}

	habits, err := s.habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return stats.Heatmap(habits, year), nil
}
