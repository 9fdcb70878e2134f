package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	dbcontracts "zenhabit/contracts/db"
	mqcontracts "zenhabit/contracts/mq"
	"zenhabit/pkg/streak"
)

// 2024-06-12 是周三
var fixedNow = time.Date(2024, time.June, 12, 10, 30, 0, 0, time.UTC)

type fixture struct {
	svc        *Service
	habits     *fakeHabits
	milestones *fakeMilestones
	insights   *fakeInsights
	publisher  *fakePublisher
	cache      *fakeCache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		habits:     newFakeHabits(),
		milestones: &fakeMilestones{},
		insights:   &fakeInsights{latest: map[int]*dbcontracts.Insight{}},
		publisher:  &fakePublisher{},
		cache:      newFakeCache(),
	}
	f.svc = NewService(f.habits, f.milestones, f.insights, f.publisher, time.UTC, zap.NewNop(),
		WithClock(func() time.Time { return fixedNow }),
		WithCache(f.cache),
	)
	return f
}

func (f *fixture) habit(userID int, done ...string) *dbcontracts.Habit {
	l := streak.Ledger{}
	for _, d := range done {
		l[d] = true
	}
	return f.habits.add(dbcontracts.Habit{
		UserID:      userID,
		Name:        "Read",
		Frequency:   dbcontracts.FrequencyDaily,
		TargetCount: 1,
		IsActive:    true,
		CreatedAt:   fixedNow.AddDate(0, 0, -10),
		Completions: l,
	})
}

func (f *fixture) milestone(userID int, date, title string) {
	_, _ = f.milestones.Insert(context.Background(), &dbcontracts.Milestone{
		UserID: userID, Date: date, Title: title, Type: dbcontracts.MilestoneExam,
	})
}

func TestCreateHabit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.svc.CreateHabit(ctx, 1, "  Meditate  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Meditate", h.Name)
	assert.Equal(t, dbcontracts.FrequencyDaily, h.Frequency)
	assert.Equal(t, 1, h.TargetCount)
	assert.True(t, h.IsActive)
	assert.Contains(t, Palette, h.Color)
	assert.NotZero(t, h.ID)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, mqcontracts.RoutingHabitCreated, f.publisher.events[0].routingKey)
}

func TestCreateHabit_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateHabit(ctx, 1, "   ", "daily")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateHabit(ctx, 1, "Run", "hourly")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.publisher.events)
}

func TestCreateHabit_PublishFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("mq down")

	_, err := f.svc.CreateHabit(context.Background(), 1, "Run", "weekly")
	assert.NoError(t, err)
}

func TestListHabits_IncludesStreak(t *testing.T) {
	f := newFixture(t)
	f.habit(1, "2024-06-10", "2024-06-11")
	f.habit(2, "2024-06-11")

	views, err := f.svc.ListHabits(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	// 今天未打卡，从昨天开始数
	assert.Equal(t, 2, views[0].Streak)
}

func TestToggleCompletion_Today(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.habit(1, "2024-06-11")

	res, err := f.svc.ToggleCompletion(ctx, 1, h.ID, "2024-06-12")
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, 2, res.Streak)

	require.Len(t, f.publisher.events, 1)
	payload := f.publisher.events[0].payload.(mqcontracts.CompletionToggledPayload)
	assert.Equal(t, mqcontracts.RoutingCompletionToggled, f.publisher.events[0].routingKey)
	assert.Equal(t, 2, payload.Streak)
	assert.True(t, payload.Done)

	res, err = f.svc.ToggleCompletion(ctx, 1, h.ID, "")
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, "2024-06-12", res.Date)
	assert.Equal(t, 1, res.Streak)
}

func TestToggleCompletion_StreakSkipsMilestone(t *testing.T) {
	f := newFixture(t)
	h := f.habit(1, "2024-06-09", "2024-06-10")
	f.milestone(1, "2024-06-11", "Finals")

	res, err := f.svc.ToggleCompletion(context.Background(), 1, h.ID, "2024-06-12")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Streak)
}

func TestToggleCompletion_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.habit(1)
	f.milestone(1, "2024-06-12", "Exam")
	f.milestone(1, "2024-06-01", "Past exam")

	_, err := f.svc.ToggleCompletion(ctx, 1, h.ID, "2024-06-12")
	assert.ErrorIs(t, err, ErrMilestoneDay)

	_, err = f.svc.ToggleCompletion(ctx, 1, h.ID, "2024-06-01")
	assert.ErrorIs(t, err, ErrMilestoneDay)

	_, err = f.svc.ToggleCompletion(ctx, 1, h.ID, "2024-06-11")
	assert.ErrorIs(t, err, ErrNotToday)

	_, err = f.svc.ToggleCompletion(ctx, 1, h.ID, "12/06/2024")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.ToggleCompletion(ctx, 2, h.ID, "2024-06-12")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Empty(t, f.publisher.events)
	assert.Empty(t, f.habits.rows[h.ID].Completions)
}

func TestToggleCompletion_UsesServiceTimezone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	f := newFixture(t)
	// UTC 2024-06-12 20:00 在东京已是 6 月 13 日
	late := time.Date(2024, time.June, 12, 20, 0, 0, 0, time.UTC)
	f.svc = NewService(f.habits, f.milestones, f.insights, f.publisher, tokyo, zap.NewNop(),
		WithClock(func() time.Time { return late }))
	h := f.habit(1)

	_, err := f.svc.ToggleCompletion(context.Background(), 1, h.ID, "2024-06-12")
	assert.ErrorIs(t, err, ErrNotToday)

	res, err := f.svc.ToggleCompletion(context.Background(), 1, h.ID, "2024-06-13")
	require.NoError(t, err)
	assert.True(t, res.Done)
}

func TestSetHabitActiveAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.habit(1)
	f.insights.latest[1] = &dbcontracts.Insight{UserID: 1}

	require.NoError(t, f.svc.SetHabitActive(ctx, 1, h.ID, false))
	assert.False(t, f.habits.rows[h.ID].IsActive)
	assert.ErrorIs(t, f.svc.SetHabitActive(ctx, 2, h.ID, true), ErrNotFound)

	assert.ErrorIs(t, f.svc.DeleteHabit(ctx, 2, h.ID), ErrNotFound)
	require.NoError(t, f.svc.DeleteHabit(ctx, 1, h.ID))
	assert.Equal(t, []int{1}, f.insights.cleared)
	assert.Empty(t, f.habits.rows)
}

func TestCreateMilestone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	m, err := f.svc.CreateMilestone(ctx, 1, MilestoneInput{Title: " Finals ", Date: "2024-06-20"})
	require.NoError(t, err)
	assert.Equal(t, "Finals", m.Title)
	assert.Equal(t, dbcontracts.MilestoneExam, m.Type)
	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, mqcontracts.RoutingMilestoneCreated, f.publisher.events[0].routingKey)
}

func TestCreateMilestone_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []MilestoneInput{
		{Title: "", Date: "2024-06-20"},
		{Title: "Exam", Date: "tomorrow"},
		{Title: "Exam", Date: "2024-02-30"},
		{Title: "Exam", Date: "2024-06-20", Type: "holiday"},
	}
	for _, in := range cases {
		_, err := f.svc.CreateMilestone(ctx, 1, in)
		assert.ErrorIs(t, err, ErrValidation, "%+v", in)
	}
}

func TestCreateMilestone_ConflictNeedsConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.habit(1, "2024-06-12")

	_, err := f.svc.CreateMilestone(ctx, 1, MilestoneInput{Title: "Exam", Date: "2024-06-12"})
	assert.ErrorIs(t, err, ErrMilestoneConflict)

	m, err := f.svc.CreateMilestone(ctx, 1, MilestoneInput{Title: "Exam", Date: "2024-06-12", Confirm: true})
	require.NoError(t, err)
	assert.NotZero(t, m.ID)

	// 其他用户的打卡不构成冲突
	_, err = f.svc.CreateMilestone(ctx, 2, MilestoneInput{Title: "Exam", Date: "2024-06-12"})
	assert.NoError(t, err)
}

func TestListMilestones_Countdown(t *testing.T) {
	f := newFixture(t)
	f.milestone(1, "2024-06-30", "Later")
	f.milestone(1, "2024-06-12", "Today")
	f.milestone(1, "2024-06-18", "Next week")
	f.milestone(1, "2024-06-19", "Edge")
	f.milestone(1, "2024-06-01", "Past")

	views, err := f.svc.ListMilestones(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, views, 5)

	got := map[string]MilestoneView{}
	for _, v := range views {
		got[v.Title] = v
	}
	assert.Equal(t, "2024-06-01", views[0].Date)
	assert.Equal(t, -11, got["Past"].DaysUntil)
	assert.False(t, got["Past"].Soon)
	assert.Equal(t, 0, got["Today"].DaysUntil)
	assert.True(t, got["Today"].Soon)
	assert.Equal(t, 6, got["Next week"].DaysUntil)
	assert.True(t, got["Next week"].Soon)
	assert.Equal(t, 7, got["Edge"].DaysUntil)
	assert.False(t, got["Edge"].Soon)
	assert.Equal(t, 18, got["Later"].DaysUntil)
}

func TestDeleteMilestone(t *testing.T) {
	f := newFixture(t)
	f.milestone(1, "2024-06-20", "Exam")

	assert.ErrorIs(t, f.svc.DeleteMilestone(context.Background(), 2, 1), ErrNotFound)
	assert.NoError(t, f.svc.DeleteMilestone(context.Background(), 1, 1))
	assert.Empty(t, f.milestones.rows)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.habit(1, "2024-06-10", "2024-06-11", "2024-06-12")
	paused := f.habit(1, "2024-06-11")
	paused.IsActive = false
	f.milestone(1, "2024-06-14", "Finals")

	d, err := f.svc.Dashboard(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-12", d.Date)
	assert.Equal(t, 2, d.TotalHabits)
	assert.Equal(t, 1, d.ActiveHabits)
	assert.Equal(t, 3, d.BestStreak)
	// (3/10 + 1/10) / 2
	assert.Equal(t, 20, d.Consistency)
	require.Len(t, d.Week, 7)
	assert.Equal(t, "2024-06-10", d.Week[0].Date)
	assert.Equal(t, "Finals", d.Week[4].Milestone)
	assert.True(t, d.Today.IsToday)
	assert.Equal(t, 1, d.Today.Completed)
	assert.Equal(t, 100, d.Today.Percent)
	require.NotNil(t, d.NextMilestone)
	assert.Equal(t, 2, d.NextMilestone.DaysUntil)
	assert.True(t, d.NextMilestone.Soon)
}

func TestDashboard_CachedUntilWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	h := f.habit(1)

	first, err := f.svc.Dashboard(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Today.Completed)
	require.Contains(t, f.cache.data, 1)

	// 直接改底层数据，缓存命中时看不到
	f.habits.rows[h.ID].Completions["2024-06-12"] = true
	cached, err := f.svc.Dashboard(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, cached.Today.Completed)

	_, err = f.svc.CreateHabit(ctx, 1, "Walk", "")
	require.NoError(t, err)
	assert.NotContains(t, f.cache.data, 1)

	fresh, err := f.svc.Dashboard(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Today.Completed)
	assert.Equal(t, 2, fresh.TotalHabits)
}

func TestHeatmap(t *testing.T) {
	f := newFixture(t)
	f.habit(1, "2024-02-29")

	cells, err := f.svc.Heatmap(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, cells, 366)
	assert.Equal(t, "2024-02-29", cells[59].Date)
	assert.Equal(t, 4, cells[59].Level)

	cells, err = f.svc.Heatmap(context.Background(), 1, 2023)
	require.NoError(t, err)
	assert.Len(t, cells, 365)

	_, err = f.svc.Heatmap(context.Background(), 1, 12)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRequestInsight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestInsight(ctx, 1)
	assert.ErrorIs(t, err, ErrNoHabits)

	f.habit(1, "2024-06-11")
	id, err := f.svc.RequestInsight(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, id, 36)

	require.Len(t, f.publisher.events, 1)
	payload := f.publisher.events[0].payload.(mqcontracts.InsightRequestedPayload)
	assert.Equal(t, mqcontracts.RoutingInsightRequested, f.publisher.events[0].routingKey)
	assert.Equal(t, id, payload.RequestID)
	assert.Equal(t, 1, payload.UserID)

	f.publisher.err = errors.New("mq down")
	_, err = f.svc.RequestInsight(ctx, 1)
	assert.Error(t, err)
}

func TestLatestInsight(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.LatestInsight(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)

	f.insights.latest[1] = &dbcontracts.Insight{UserID: 1, Reflection: "Nice week"}
	in, err := f.svc.LatestInsight(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Nice week", in.Reflection)
}
