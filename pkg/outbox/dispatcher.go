package outbox

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"zenhabit/pkg/trace"
)

// Sender publishes a payload to the broker; *mq.Publisher satisfies it.
type Sender interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Store interface {
	Pending(ctx context.Context, limit int) ([]Event, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, maxRetries int, cause error) error
}

// Dispatcher 负责从 outbox 中读取事件并发布到 MQ
type Dispatcher struct {
	store      Store
	sender     Sender
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

func NewDispatcher(store Store, sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:      store,
		sender:     sender,
		logger:     logger,
		maxRetries: 5,               // 默认最大重试5次
		interval:   5 * time.Second, // 默认每5秒扫描一次
		batchSize:  100,
	}
}

// WithMaxRetries 设置最大重试次数
func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	d.maxRetries = maxRetries
	return d
}

// WithInterval 设置扫描间隔
func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	d.interval = interval
	return d
}

// Start blocks until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting Outbox Dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox Dispatcher stopped")
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce publishes one batch and returns how many events were sent.
func (d *Dispatcher) DispatchOnce(ctx context.Context) int {
	events, err := d.store.Pending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to get pending events", zap.Error(err))
		return 0
	}

	sent := 0
	for _, e := range events {
		pubCtx := withPayloadTrace(ctx, e.Payload)
		if err := d.sender.Publish(pubCtx, e.RoutingKey, e.Payload); err != nil {
			d.logger.Warn("Failed to publish outbox event",
				zap.Int64("event_id", e.ID),
				zap.String("routing_key", e.RoutingKey),
				zap.Int("retry_count", e.RetryCount),
				zap.Error(err),
			)
			if err := d.store.MarkFailed(ctx, e.ID, d.maxRetries, err); err != nil {
				d.logger.Error("Failed to mark event as failed", zap.Int64("event_id", e.ID), zap.Error(err))
			}
			continue
		}

		if err := d.store.MarkSent(ctx, e.ID); err != nil {
			d.logger.Error("Failed to mark event as sent", zap.Int64("event_id", e.ID), zap.Error(err))
			continue
		}
		sent++
	}

	if sent > 0 {
		d.logger.Info("Outbox events dispatched", zap.Int("sent", sent), zap.Int("batch", len(events)))
	}
	return sent
}

// withPayloadTrace 从 payload 中提取 trace_id
func withPayloadTrace(ctx context.Context, payload json.RawMessage) context.Context {
	var p struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &p); err == nil && p.TraceID != "" {
		return trace.WithContext(ctx, p.TraceID)
	}
	return ctx
}
