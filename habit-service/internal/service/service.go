package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	dbcontracts "zenhabit/contracts/db"
	"zenhabit/pkg/streak"
	"zenhabit/pkg/trace"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid input")
	ErrMilestoneDay      = errors.New("habits are paused on milestone days")
	ErrNotToday          = errors.New("only today's completion can be changed")
	ErrMilestoneConflict = errors.New("habits were already completed on this date")
	ErrNoHabits          = errors.New("no habits to analyse")
)

type HabitStore interface {
	Insert(ctx context.Context, h *dbcontracts.Habit) (int, error)
	ListByUser(ctx context.Context, userID int) ([]dbcontracts.Habit, error)
	FindByID(ctx context.Context, userID, habitID int) (*dbcontracts.Habit, error)
	SetActive(ctx context.Context, userID, habitID int, active bool) error
	Delete(ctx context.Context, userID, habitID int) error
	ToggleCompletion(ctx context.Context, habitID int, date string) (bool, error)
	AnyCompletedOn(ctx context.Context, userID int, date string) (bool, error)
}

type MilestoneStore interface {
	Insert(ctx context.Context, m *dbcontracts.Milestone) (int, error)
	ListByUser(ctx context.Context, userID int) ([]dbcontracts.Milestone, error)
	ExistsOn(ctx context.Context, userID int, date string) (bool, error)
	Delete(ctx context.Context, userID, id int) error
}

type InsightStore interface {
	Latest(ctx context.Context, userID int) (*dbcontracts.Insight, error)
	DeleteByUser(ctx context.Context, userID int) error
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type DashboardCache interface {
	Get(ctx context.Context, userID int, day string, out any) bool
	Set(ctx context.Context, userID int, day string, v any)
	Invalidate(ctx context.Context, userID int)
}

// Service 习惯追踪业务逻辑；所有日期按 loc 的本地日历计算
type Service struct {
	habits     HabitStore
	milestones MilestoneStore
	insights   InsightStore
	publisher  Publisher
	cache      DashboardCache
	logger     *zap.Logger
	loc        *time.Location
	now        func() time.Time
}

type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCache enables dashboard caching.
func WithCache(c DashboardCache) Option {
	return func(s *Service) { s.cache = c }
}

func NewService(
	habits HabitStore,
	milestones MilestoneStore,
	insights InsightStore,
	publisher Publisher,
	loc *time.Location,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	if loc == nil {
		loc = time.Local
	}
	s := &Service{
		habits:     habits,
		milestones: milestones,
		insights:   insights,
		publisher:  publisher,
		logger:     logger,
		loc:        loc,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

func (s *Service) milestoneSet(ctx context.Context, userID int) (streak.MilestoneSet, []dbcontracts.Milestone, error) {
	list, err := s.milestones.ListByUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	set := streak.NewMilestoneSet()
	for _, m := range list {
		set.Add(m.Date)
	}
	return set, list, nil
}

// publish 事件发送失败不影响主流程
func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, payload); err != nil {
		s.logger.Warn("Failed to publish event",
			zap.String("routing_key", routingKey),
			zap.String("trace_id", trace.FromContext(ctx)),
			zap.Error(err),
		)
	}
}

func (s *Service) invalidate(ctx context.Context, userID int) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID)
	}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
