package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	dbcontracts "zenhabit/contracts/db"
	mqcontracts "zenhabit/contracts/mq"
	"zenhabit/insight-worker/internal/coach"
	"zenhabit/pkg/logger"
	"zenhabit/pkg/metrics"
	"zenhabit/pkg/otel"
	"zenhabit/pkg/trace"
)

const dedupHandler = "insight"

type HabitLoader interface {
	ListByUser(ctx context.Context, userID int) ([]dbcontracts.Habit, error)
}

type InsightWriter interface {
	Replace(ctx context.Context, in *dbcontracts.Insight) error
}

type Coach interface {
	Reflect(ctx context.Context, habits []dbcontracts.Habit) (coach.Reflection, bool)
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

type InsightRequestedHandler struct {
	habits   HabitLoader
	insights InsightWriter
	coach    Coach
	deduper  Deduper
	logger   *zap.Logger
}

func NewInsightRequestedHandler(
	habits HabitLoader,
	insights InsightWriter,
	c Coach,
	deduper Deduper,
	logger *zap.Logger,
) *InsightRequestedHandler {
	return &InsightRequestedHandler{
		habits:   habits,
		insights: insights,
		coach:    c,
		deduper:  deduper,
		logger:   logger,
	}
}

// Handle 处理 insight.requested：模型失败时写入 fallback 文案，只有存储失败才返回错误
func (h *InsightRequestedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var payload mqcontracts.InsightRequestedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.logger.Error("Invalid InsightRequestedPayload, sending to DLQ",
			zap.String("raw", string(raw)),
			zap.Error(err),
		)
		return fmt.Errorf("bad_payload: %w", err)
	}
	if trace.FromContext(ctx) == "" && payload.TraceID != "" {
		ctx = trace.WithContext(ctx, payload.TraceID)
	}
	log := logger.WithTrace(ctx, h.logger).With(
		zap.String("request_id", payload.RequestID),
		zap.Int("user_id", payload.UserID),
	)

	ctx, span := otel.StartSpan(ctx, "insight.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("insight.request_id", payload.RequestID),
		attribute.Int("insight.user_id", payload.UserID),
	)

	if payload.RequestID == "" || payload.UserID <= 0 {
		log.Warn("Insight request missing id or user, dropping")
		return nil
	}

	// Redis 去重（避免重复投递重复生成）
	if h.deduper != nil && !h.deduper.AcquireOnce(ctx, dedupHandler, payload.RequestID) {
		return nil
	}

	habits, err := h.habits.ListByUser(ctx, payload.UserID)
	if err != nil {
		h.release(ctx, payload.RequestID)
		return fmt.Errorf("load habits: %w", err)
	}
	if len(habits) == 0 {
		log.Info("User has no habits, skipping insight")
		return nil
	}

	r, fallback := h.coach.Reflect(ctx, habits)
	in := &dbcontracts.Insight{
		UserID:         payload.UserID,
		Reflection:     r.Reflection,
		ImprovementTip: r.ImprovementTip,
		Motivation:     r.Motivation,
		Fallback:       fallback,
	}
	if err := h.insights.Replace(ctx, in); err != nil {
		h.release(ctx, payload.RequestID)
		return fmt.Errorf("store insight: %w", err)
	}

	source := "model"
	if fallback {
		source = "fallback"
	}
	metrics.IncrementInsightGenerated(source)
	span.SetAttributes(attribute.String("insight.source", source))

	log.Info("Insight generated",
		zap.Int("insight_id", in.ID),
		zap.Int("habit_count", len(habits)),
		zap.String("source", source),
	)
	return nil
}

func (h *InsightRequestedHandler) release(ctx context.Context, requestID string) {
	if h.deduper != nil {
		h.deduper.Release(ctx, dedupHandler, requestID)
	}
}
