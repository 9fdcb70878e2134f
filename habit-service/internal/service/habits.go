package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"

	dbcontracts "zenhabit/contracts/db"
	mqcontracts "zenhabit/contracts/mq"
	"zenhabit/pkg/metrics"
	"zenhabit/pkg/streak"
	"zenhabit/pkg/trace"
)

// Palette 新习惯随机取色
var Palette = []string{
	"#10b981", // emerald
	"#3b82f6", // blue
	"#8b5cf6", // violet
	"#f59e0b", // amber
	"#ef4444", // red
	"#ec4899", // pink
	"#14b8a6", // teal
	"#6366f1", // indigo
}

// HabitView 习惯及其当前连续天数
type HabitView struct {
	dbcontracts.Habit
	Streak int `json:"streak"`
}

type ToggleResult struct {
	HabitID int    `json:"habit_id"`
	Date    string `json:"date"`
	Done    bool   `json:"done"`
	Streak  int    `json:"streak"`
}

func (s *Service) CreateHabit(ctx context.Context, userID int, name, frequency string) (*dbcontracts.Habit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if frequency == "" {
		frequency = dbcontracts.FrequencyDaily
	}
	if !dbcontracts.ValidFrequency(frequency) {
		return nil, fmt.Errorf("%w: unknown frequency %q", ErrValidation, frequency)
	}

	h := &dbcontracts.Habit{
		UserID:      userID,
		Name:        name,
		Frequency:   frequency,
		TargetCount: 1,
		Color:       Palette[rand.IntN(len(Palette))],
		IsActive:    true,
		Completions: streak.Ledger{},
	}
	if _, err := s.habits.Insert(ctx, h); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)

	s.publish(ctx, mqcontracts.RoutingHabitCreated, mqcontracts.HabitCreatedPayload{
		HabitID:   h.ID,
		UserID:    userID,
		Name:      h.Name,
		Frequency: h.Frequency,
		TraceID:   trace.FromContext(ctx),
	})
	return h, nil
}

func (s *Service) ListHabits(ctx context.Context, userID int) ([]HabitView, error) {
	habits, err := s.habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ms, _, err := s.milestoneSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	views := make([]HabitView, 0, len(habits))
	for _, h := range habits {
		views = append(views, HabitView{Habit: h, Streak: streak.Compute(h.Completions, ms, today)})
	}
	return views, nil
}

func (s *Service) SetHabitActive(ctx context.Context, userID, habitID int, active bool) error {
	if err := s.habits.SetActive(ctx, userID, habitID, active); err != nil {
		return notFound(err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// DeleteHabit removes the habit and the user's stored insights, which were
// computed from it.
func (s *Service) DeleteHabit(ctx context.Context, userID, habitID int) error {
	if err := s.habits.Delete(ctx, userID, habitID); err != nil {
		return notFound(err)
	}
	if err := s.insights.DeleteByUser(ctx, userID); err != nil {
		s.logger.Warn("Failed to clear insights after habit deletion",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
	}
	s.invalidate(ctx, userID)
	return nil
}

// ToggleCompletion flips the done flag of habitID on date. An empty date
// means today. Milestone days and any day other than today are rejected.
func (s *Service) ToggleCompletion(ctx context.Context, userID, habitID int, date string) (*ToggleResult, error) {
	today := s.today()
	todayKey := streak.Key(today)
	if date == "" {
		date = todayKey
	}
	if _, err := streak.ParseKey(date, s.loc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	h, err := s.habits.FindByID(ctx, userID, habitID)
	if err != nil {
		return nil, notFound(err)
	}

	ms, _, err := s.milestoneSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ms.Has(date) {
		metrics.IncrementCompletionToggle("milestone_day")
		return nil, ErrMilestoneDay
	}
	if date != todayKey {
		metrics.IncrementCompletionToggle("not_today")
		return nil, ErrNotToday
	}

	done, err := s.habits.ToggleCompletion(ctx, habitID, date)
	if err != nil {
		return nil, err
	}
	if h.Completions == nil {
		h.Completions = streak.Ledger{}
	}
	h.Completions[date] = done
	current := streak.Compute(h.Completions, ms, today)

	if done {
		metrics.IncrementCompletionToggle("done")
	} else {
		metrics.IncrementCompletionToggle("undone")
	}
	metrics.ObserveStreak(current)
	s.invalidate(ctx, userID)

	s.logger.Info("Completion toggled",
		zap.Int("user_id", userID),
		zap.Int("habit_id", habitID),
		zap.String("date", date),
		zap.Bool("done", done),
		zap.Int("streak", current),
	)

	s.publish(ctx, mqcontracts.RoutingCompletionToggled, mqcontracts.CompletionToggledPayload{
		HabitID: habitID,
		UserID:  userID,
		Date:    date,
		Done:    done,
		Streak:  current,
		TraceID: trace.FromContext(ctx),
	})

	return &ToggleResult{HabitID: habitID, Date: date, Done: done, Streak: current}, nil
}
