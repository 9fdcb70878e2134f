package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	dbcontracts "zenhabit/contracts/db"
	mqcontracts "zenhabit/contracts/mq"
	"zenhabit/pkg/trace"
)

// RequestInsight queues a coaching request for insight-worker and returns
// its request id.
func (s *Service) RequestInsight(ctx context.Context, userID int) (string, error) {
	habits, err := s.habits.ListByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(habits) == 0 {
		return "", ErrNoHabits
	}
	if s.publisher == nil {
		return "", fmt.Errorf("insight requests are unavailable: no publisher")
	}

	payload := mqcontracts.InsightRequestedPayload{
		RequestID:   uuid.NewString(),
		UserID:      userID,
		RequestedAt: s.now().UTC(),
		TraceID:     trace.FromContext(ctx),
	}
	if err := s.publisher.Publish(ctx, mqcontracts.RoutingInsightRequested, payload); err != nil {
		return "", fmt.Errorf("publish insight request: %w", err)
	}

	s.logger.Info("Insight requested",
		zap.Int("user_id", userID),
		zap.String("request_id", payload.RequestID),
		zap.Int("habit_count", len(habits)),
	)
	return payload.RequestID, nil
}

func (s *Service) LatestInsight(ctx context.Context, userID int) (*dbcontracts.Insight, error) {
	in, err := s.insights.Latest(ctx, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return in, nil
}
