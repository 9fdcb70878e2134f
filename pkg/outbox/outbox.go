package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Event 表示一个待发布的事件
type Event struct {
	ID          int64           `json:"id"`
	RoutingKey  string          `json:"routing_key"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	RetryCount  int             `json:"retry_count"`
	LastError   string          `json:"last_error,omitempty"`
	NextRetryAt *time.Time      `json:"next_retry_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository 提供 Outbox 操作
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert stores a pending event. Pass a pgx.Tx to commit it together with
// business rows.
func (r *Repository) Insert(ctx context.Context, q Querier, e *Event) error {
	if q == nil {
		q = r.db
	}
	query := `
        INSERT INTO outbox_events (routing_key, payload, status, last_error)
        VALUES ($1, $2, 'pending', $3)
        RETURNING id, status, created_at
    `
	err := q.QueryRow(ctx, query, e.RoutingKey, e.Payload, e.LastError).Scan(&e.ID, &e.Status, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

const eventColumns = `id, routing_key, payload, status, retry_count, last_error, next_retry_at, created_at`

// Pending returns events due for dispatch, oldest first.
func (r *Repository) Pending(ctx context.Context, limit int) ([]Event, error) {
	query := `SELECT ` + eventColumns + `
        FROM outbox_events
        WHERE status = 'pending'
        AND (next_retry_at IS NULL OR next_retry_at <= NOW())
        ORDER BY created_at ASC
        LIMIT $1
    `
	return r.list(ctx, query, limit)
}

// Failed returns events that exhausted their retries, newest first.
func (r *Repository) Failed(ctx context.Context, limit int) ([]Event, error) {
	query := `SELECT ` + eventColumns + `
        FROM outbox_events
        WHERE status = 'failed'
        ORDER BY created_at DESC
        LIMIT $1
    `
	return r.list(ctx, query, limit)
}

func (r *Repository) MarkSent(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `
        UPDATE outbox_events SET status = 'sent', updated_at = NOW() WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}
	return nil
}

// MarkFailed bumps the retry count with linear backoff (5s, 10s, ...). After
// maxRetries the event is parked as failed until replayed.
func (r *Repository) MarkFailed(ctx context.Context, id int64, maxRetries int, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	query := `
        UPDATE outbox_events
        SET retry_count = retry_count + 1,
            status = CASE WHEN retry_count + 1 >= $2 THEN 'failed' ELSE 'pending' END,
            next_retry_at = CASE WHEN retry_count + 1 >= $2 THEN NULL
                                 ELSE NOW() + (retry_count + 1) * INTERVAL '5 seconds' END,
            last_error = $3,
            updated_at = NOW()
        WHERE id = $1
    `
	if _, err := r.db.Exec(ctx, query, id, maxRetries, msg); err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return nil
}

// Requeue resets failed events to pending. id 0 requeues every failed event.
func (r *Repository) Requeue(ctx context.Context, id int64) (int64, error) {
	query := `
        UPDATE outbox_events
        SET status = 'pending', retry_count = 0, next_retry_at = NULL, updated_at = NOW()
        WHERE status = 'failed' AND ($1 = 0 OR id = $1)
    `
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) list(ctx context.Context, query string, limit int) ([]Event, error) {
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.RoutingKey,
			&e.Payload,
			&e.Status,
			&e.RetryCount,
			&e.LastError,
			&e.NextRetryAt,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
