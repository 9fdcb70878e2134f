package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

type Inserter interface {
	Insert(ctx context.Context, q Querier, e *Event) error
}

// Publisher sends directly and parks the event in the outbox when the broker
// rejects it, so callers only see an error when both paths fail.
type Publisher struct {
	sender Sender
	store  Inserter
	logger *zap.Logger
}

func NewPublisher(sender Sender, store Inserter, logger *zap.Logger) *Publisher {
	return &Publisher{sender: sender, store: store, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	sendErr := p.sender.Publish(ctx, routingKey, payload)
	if sendErr == nil {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}
	e := &Event{RoutingKey: routingKey, Payload: body, LastError: sendErr.Error()}
	if err := p.store.Insert(ctx, nil, e); err != nil {
		return fmt.Errorf("publish %s: %w (outbox: %v)", routingKey, sendErr, err)
	}

	p.logger.Warn("Broker publish failed, event stored in outbox",
		zap.String("routing_key", routingKey),
		zap.Int64("event_id", e.ID),
		zap.Error(sendErr),
	)
	return nil
}
