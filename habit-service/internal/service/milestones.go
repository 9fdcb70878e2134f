package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	dbcontracts "zenhabit/contracts/db"
	mqcontracts "zenhabit/contracts/mq"
	"zenhabit/pkg/streak"
	"zenhabit/pkg/trace"
)

// SoonWindow 距今不足该天数的里程碑标记为 soon
const SoonWindow = 7

type MilestoneInput struct {
	Title   string `json:"title"`
	Date    string `json:"date"`
	Notes   string `json:"notes"`
	Type    string `json:"type"`
	Confirm bool   `json:"confirm"`
}

type MilestoneView struct {
	dbcontracts.Milestone
	DaysUntil int  `json:"days_until"`
	Soon      bool `json:"soon"`
}

// CreateMilestone stores a milestone. If any habit was already completed on
// that date, in.Confirm must be set.
func (s *Service) CreateMilestone(ctx context.Context, userID int, in MilestoneInput) (*dbcontracts.Milestone, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if _, err := streak.ParseKey(in.Date, s.loc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	typ := in.Type
	if typ == "" {
		typ = dbcontracts.MilestoneExam
	}
	if !dbcontracts.ValidMilestoneType(typ) {
		return nil, fmt.Errorf("%w: unknown milestone type %q", ErrValidation, typ)
	}

	if !in.Confirm {
		completed, err := s.habits.AnyCompletedOn(ctx, userID, in.Date)
		if err != nil {
			return nil, err
		}
		if completed {
			return nil, ErrMilestoneConflict
		}
	}

	m := &dbcontracts.Milestone{
		UserID: userID,
		Date:   in.Date,
		Title:  title,
		Notes:  strings.TrimSpace(in.Notes),
		Type:   typ,
	}
	if _, err := s.milestones.Insert(ctx, m); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)

	s.publish(ctx, mqcontracts.RoutingMilestoneCreated, mqcontracts.MilestoneCreatedPayload{
		MilestoneID: m.ID,
		UserID:      userID,
		Date:        m.Date,
		Title:       m.Title,
		Type:        m.Type,
		TraceID:     trace.FromContext(ctx),
	})
	return m, nil
}

// ListMilestones returns milestones by date with a countdown from today.
func (s *Service) ListMilestones(ctx context.Context, userID int) ([]MilestoneView, error) {
	list, err := s.milestones.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	todayKey := streak.Key(s.today())

	views := make([]MilestoneView, 0, len(list))
	for _, m := range list {
		days, err := daysBetween(todayKey, m.Date)
		if err != nil {
			continue
		}
		views = append(views, MilestoneView{
			Milestone: m,
			DaysUntil: days,
			Soon:      days >= 0 && days < SoonWindow,
		})
	}
	return views, nil
}

func (s *Service) DeleteMilestone(ctx context.Context, userID, id int) error {
	if err := s.milestones.Delete(ctx, userID, id); err != nil {
		return notFound(err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// daysBetween counts calendar days from one key to another.
func daysBetween(from, to string) (int, error) {
	a, err := streak.ParseKey(from, time.UTC)
	if err != nil {
		return 0, err
	}
	b, err := streak.ParseKey(to, time.UTC)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}
